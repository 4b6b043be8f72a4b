package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

// TokenValidator validates a raw token and returns the claims to store in
// the request locals.
type TokenValidator interface {
	Validate(tokenString string) (any, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(tokenString string) (any, error)

func (f TokenValidatorFunc) Validate(tokenString string) (any, error) {
	return f(tokenString)
}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	ContextKey     string
	// Header carrying the token, Authorization by default.
	Header         string
	AuthScheme     string
	// TokenValidator is required.
	TokenValidator TokenValidator

	// ContextEnricher propagates the claims to the request's user context.
	ContextEnricher func(c context.Context, claims any) context.Context
}

// New returns a fiber handler that rejects requests without a valid token.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extract := jwtFromHeader(cfg.Header, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extract(c)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if errors.Is(err, ErrJWTMissingOrMalformed) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": ErrJWTMissingOrMalformed.Error()})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid or expired token"})
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.Header == "" {
		cfg.Header = fiber.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}
