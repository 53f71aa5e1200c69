package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/id"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/validation"
)

// RegisterInput is a new account.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Accounts registers users and resolves request identities.
type Accounts struct {
	users    *store.Users
	validate *validation.Validator
	admins   map[string]bool
}

// NewAccounts creates the account service. adminIDs are allowed to fully
// delete records and act on other users' ownership.
func NewAccounts(users *store.Users, adminIDs []string) *Accounts {
	admins := make(map[string]bool, len(adminIDs))
	for _, a := range adminIDs {
		admins[a] = true
	}
	return &Accounts{
		users:    users,
		validate: validation.New(),
		admins:   admins,
	}
}

// Register creates an account with a bcrypt-hashed password. A taken email
// or username is a CONFLICT.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := a.validate.Validate("invalid registration", in); err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:       id.NewUserID(),
		Email:    in.Email,
		Username: in.Username,
	}
	if err := u.SetPassword(in.Password); err != nil {
		if errors.Is(err, domain.ErrPasswordTooShort) {
			return nil, apperr.ValidationWithDetails("invalid registration",
				map[string]string{"password": err.Error()})
		}
		return nil, apperr.Internal("failed to register user", err)
	}

	created, err := a.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	return created.Public(), nil
}

// Resolve turns a user id supplied by the upstream authenticator into an
// Identity. An unknown id is UNAUTHORIZED.
func (a *Accounts) Resolve(ctx context.Context, userID string) (domain.Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Identity{}, apperr.Unauthorized("authentication required")
	}
	u, err := a.users.Get(ctx, userID)
	if apperr.Is(err, apperr.ErrNotFound) {
		return domain.Identity{}, apperr.Unauthorized("unknown user")
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Admin:    a.admins[u.ID],
	}, nil
}
