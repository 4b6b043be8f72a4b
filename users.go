package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-auth-gateway/social"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// GetOrCreateOptions tunes GetOrCreateUser.
type GetOrCreateOptions struct {
	// UseHashid derives the user id from the email instead of a random uuid.
	UseHashid bool
}

// GetOrCreateUser returns the user registered under profile.Email, creating
// it on first sight. Created users get an unusable password. The boolean
// reports whether a record was created.
func GetOrCreateUser(ctx context.Context, store UserStore, profile *social.Profile, opts GetOrCreateOptions) (*User, bool, error) {
	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, false, errors.New("profile email is required", errors.CategoryBadInput)
	}
	email := strings.TrimSpace(profile.Email)

	user, err := store.FindUserByEmail(ctx, email)
	if err == nil && user != nil {
		return user, false, nil
	}
	if err != nil && !HasTextCode(err, TextCodeUserNotFound) {
		return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}

	record := &User{
		Email:        email,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		PasswordHash: RandomPasswordHash(),
	}
	if opts.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			record.ID = id
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := store.CreateUser(ctx, record)
	if err != nil {
		// a concurrent request may have created the same email
		if existing, ferr := store.FindUserByEmail(ctx, email); ferr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, errors.Wrap(err, errors.CategoryConflict, "could not create user")
	}

	return created, true, nil
}

// PasswordVerifier checks local credentials against the bcrypt hash stored
// for the user.
type PasswordVerifier struct {
	users UserStore
}

func NewPasswordVerifier(users UserStore) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

func (v *PasswordVerifier) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	user, err := v.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredential
	}

	return user, nil
}
