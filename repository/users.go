package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-auth-gateway"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed auth.UserStore.
type Users struct {
	repository.Repository[*auth.User]
	db  *bun.DB
	now func() time.Time
}

var _ auth.UserStore = (*Users)(nil)

func NewUsers(db *bun.DB) *Users {
	repo := repository.NewRepository[*auth.User](db, repository.ModelHandlers[*auth.User]{
		NewRecord: func() *auth.User { return &auth.User{} },
		GetID: func(u *auth.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *auth.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &Users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// CreateSchema creates the users table if it does not exist.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create users table")
	}
	return nil
}

// FindUserByEmail implements auth.UserStore.
func (r *Users) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.FindUserByEmailTx(ctx, r.db, email)
}

func (r *Users) FindUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	record := &auth.User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to select user by email")
	}
	return record, nil
}

// CreateUser implements auth.UserStore.
func (r *Users) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	prepareUserDefaults(user, r.now())

	created, err := r.Repository.Create(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "failed to insert user")
	}
	return created, nil
}

// SaveUser implements auth.UserStore. Only columns and updated_at are
// written.
func (r *Users) SaveUser(ctx context.Context, user *auth.User, columns ...string) error {
	return r.SaveUserTx(ctx, r.db, user, columns...)
}

func (r *Users) SaveUserTx(ctx context.Context, tx bun.IDB, user *auth.User, columns ...string) error {
	if user == nil || user.ID == uuid.Nil {
		return auth.ErrUserNotFound
	}
	if len(columns) == 0 {
		return nil
	}

	now := r.now()
	user.UpdatedAt = &now
	columns = append(columns, "updated_at")

	res, err := tx.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func prepareUserDefaults(user *auth.User, now time.Time) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = &now
	}
}
