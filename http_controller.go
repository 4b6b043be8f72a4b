package auth

import (
	"context"
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth-gateway/middleware/jwtware"
	"github.com/goliatone/go-auth-gateway/social"
	"github.com/goliatone/go-print"
)

const (
	DetailInvalidCredential = "No active account found with the given credentials"
	DetailInvalidRefresh    = "Refresh token is invalid or expired"
	DetailInternal          = "internal server error"
	DetailTokenExpired      = "Token is expired"
	DetailTokenInvalid      = "Token is invalid"
)

// HTTPController exposes the Gateway over fiber.
type HTTPController struct {
	gateway    *Gateway
	validator  TokenValidator
	prefix     string
	contextKey string
	debug      bool
	logger     Logger
}

func NewHTTPController(gateway *Gateway, validator TokenValidator) *HTTPController {
	return &HTTPController{
		gateway:    gateway,
		validator:  validator,
		prefix:     gateway.routePrefix,
		contextKey: "user",
		logger:     defLogger{},
	}
}

func (h *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithDebug dumps request payloads at debug level.
func (h *HTTPController) WithDebug(debug bool) *HTTPController {
	h.debug = debug
	return h
}

// Register mounts the auth routes on r under the gateway route prefix.
func (h *HTTPController) Register(r fiber.Router) {
	group := r.Group(h.prefix)

	group.Post("/token/", h.TokenObtain)
	group.Post("/login/", h.TokenObtain)
	group.Post("/token/refresh/", h.TokenRefresh)

	group.Get("/login/google/", h.FederatedCallback("google"))
	group.Get("/login/facebook/", h.FederatedCallback("facebook"))
	group.Post("/login/google/id-token/", h.GoogleIDToken)
	group.Get("/authorize/:provider/", h.Authorize)

	group.Get("/logout/", h.protected(), h.currentUser, h.Logout)
}

func (h *HTTPController) protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey: h.contextKey,
		TokenValidator: jwtware.TokenValidatorFunc(func(token string) (any, error) {
			return h.validator.Validate(token)
		}),
		ContextEnricher: func(ctx context.Context, claims any) context.Context {
			if tc, ok := claims.(*TokenClaims); ok {
				return WithClaimsContext(ctx, tc)
			}
			return ctx
		},
		ErrorHandler: h.tokenError,
	})
}

func (h *HTTPController) tokenError(c *fiber.Ctx, err error) error {
	switch {
	case stderrors.Is(err, jwtware.ErrJWTMissingOrMalformed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": jwtware.ErrJWTMissingOrMalformed.Error()})
	case IsTokenExpiredError(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": DetailTokenExpired})
	case IsMalformedError(err):
		h.logger.Debug("access token rejected", "path", c.Path(), "error", err)
	default:
		h.logger.Warn("access token validation failed", "path", c.Path(), "error", err)
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": DetailTokenInvalid})
}

// currentUser puts the user the access token was issued to on the request
// context. A user that cannot be loaded is logged and left out.
func (h *HTTPController) currentUser(c *fiber.Ctx) error {
	claims, ok := GetClaims(c.UserContext())
	if !ok {
		claims, ok = GetFiberClaims(c, h.contextKey)
	}
	if !ok {
		h.logger.Warn("no claims in request context", "path", c.Path())
		return c.Next()
	}

	user, err := h.gateway.UserForClaims(c.UserContext(), claims)
	if err != nil {
		h.logger.Warn("could not load user for token", "subject", claims.Subject(), "error", err)
		return c.Next()
	}

	c.SetUserContext(WithContext(c.UserContext(), user))
	return c.Next()
}

// LoginRequest is the local login payload
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// RefreshRequest is the refresh payload
type RefreshRequest struct {
	Email   string `json:"email" form:"email"`
	Refresh string `json:"refresh" form:"refresh"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Refresh, validation.Required),
	)
}

// IDTokenRequest carries a Google ID token obtained by the browser
type IDTokenRequest struct {
	IDToken string `json:"id_token" form:"id_token"`
}

func (r IDTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

func (h *HTTPController) TokenObtain(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	if h.debug {
		h.logger.Debug("token obtain", "payload", print.MaybePrettyJSON(LoginRequest{Email: payload.Email, Password: "****"}))
	}

	result, err := h.gateway.LocalLogin(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if HasTextCode(err, TextCodeInvalidCredential) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": DetailInvalidCredential})
		}
		return h.internalError(c, "token obtain failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *HTTPController) TokenRefresh(c *fiber.Ctx) error {
	payload := new(RefreshRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, err)
	}
	if err := payload.Validate(); err != nil {
		h.logger.Debug("token refresh payload rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": DetailInvalidRefresh})
	}

	pair, err := h.gateway.Refresh(c.UserContext(), payload.Email, payload.Refresh)
	if err != nil {
		if HasTextCode(err, TextCodeInvalidOrExpiredToken) || HasTextCode(err, TextCodeInvalidCredential) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": DetailInvalidRefresh})
		}
		return h.internalError(c, "token refresh failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(pair)
}

// FederatedCallback handles the provider redirect for provider.
func (h *HTTPController) FederatedCallback(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := social.ReadCallbackParams(func(key string) string {
			return c.Query(key)
		})

		if h.debug {
			h.logger.Debug("federated callback", "provider", provider, "params", print.MaybePrettyJSON(map[string]string{
				"error": params.Error,
				"state": params.State,
			}))
		}

		result, err := h.gateway.FederatedLogin(c.UserContext(), provider, params)
		if err != nil {
			if rejection, ok := err.(*CallbackRejection); ok {
				h.logger.Info("federated callback rejected", "provider", provider, "reason", rejection.Reason)
				return c.Redirect(rejection.Location, fiber.StatusFound)
			}
			return h.providerError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(result)
	}
}

func (h *HTTPController) GoogleIDToken(c *fiber.Ctx) error {
	payload := new(IDTokenRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	result, err := h.gateway.GoogleIDTokenLogin(c.UserContext(), payload.IDToken)
	if err != nil {
		if HasTextCode(err, social.TextCodeIDTokenInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": social.ErrInvalidIDToken.Message})
		}
		return h.providerError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Authorize redirects the browser to the provider consent page.
func (h *HTTPController) Authorize(c *fiber.Ctx) error {
	target, err := h.gateway.AuthorizationURL(c.Params("provider"))
	if err != nil {
		return h.providerError(c, err)
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Logout revokes the caller's refresh token. It always answers 202.
func (h *HTTPController) Logout(c *fiber.Ctx) error {
	user, ok := FromContext(c.UserContext())
	if !ok {
		return c.SendStatus(fiber.StatusAccepted)
	}

	if err := h.gateway.Logout(c.UserContext(), user); err != nil {
		h.logger.Error("logout failed to revoke refresh token", "user", user.ID, "error", err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *HTTPController) providerError(c *fiber.Ctx, err error) error {
	if HasTextCode(err, social.TextCodeProviderNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": social.ErrProviderNotFound.Message})
	}
	if perr, ok := social.AsProviderError(err); ok {
		h.logger.Warn("provider request failed", "provider", perr.Provider, "operation", perr.Operation, "status", perr.Status)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"detail": perr.Detail()})
	}
	return h.internalError(c, "federated login failed", err)
}

func (h *HTTPController) internalError(c *fiber.Ctx, msg string, err error) error {
	h.logger.Error(msg, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": DetailInternal})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": err.Error()})
}

func validationError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"detail": "invalid request"}
	if verrs, ok := err.(validation.Errors); ok {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		body["errors"] = fields
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
