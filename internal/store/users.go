package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

// Users stores accounts with case-insensitive unique email and username.
type Users struct {
	run *runner
	now func() time.Time
}

// NewUsers creates a user store on top of kv.
func NewUsers(kv KV, opts Options, log logger.Logger) *Users {
	return &Users{
		run: &runner{kv: kv, opts: opts, log: log},
		now: time.Now,
	}
}

// Create stores u. u.ID and u.CredentialHash must already be set.
// A taken email or username is a CONFLICT.
func (s *Users) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	out := *u
	out.Email = strings.TrimSpace(out.Email)
	out.Username = strings.TrimSpace(out.Username)
	now := s.now().UTC()
	out.CreatedAt = now
	out.UpdatedAt = now

	err := s.run.update(ctx, "users.create", func(tx Tx) error {
		if _, err := tx.Get(UserKey(out.ID)); err == nil {
			return apperr.Conflict("user id already in use")
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		if err := claim(tx, UserEmailKey(out.Email), out.ID, "email"); err != nil {
			return err
		}
		if err := claim(tx, UserUsernameKey(out.Username), out.ID, "username"); err != nil {
			return err
		}

		data, err := encode(&out)
		if err != nil {
			return err
		}
		if err := tx.Set(UserKey(out.ID), data); err != nil {
			return err
		}
		return tx.AddMember(KeyAllUsers, out.ID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns a user by ID or NOT_FOUND.
func (s *Users) Get(ctx context.Context, id string) (*domain.User, error) {
	var u *domain.User
	err := s.run.view(ctx, "users.get", func(tx Tx) error {
		var err error
		u, err = getUser(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByUsername looks a user up case-insensitively.
func (s *Users) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u *domain.User
	err := s.run.view(ctx, "users.get_by_username", func(tx Tx) error {
		holder, err := tx.Get(UserUsernameKey(username))
		if errors.Is(err, ErrKeyNotFound) {
			return apperr.NotFoundf("user %s not found", username)
		}
		if err != nil {
			return err
		}
		u, err = getUser(tx, string(holder))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Count returns the number of registered users.
func (s *Users) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.run.view(ctx, "users.count", func(tx Tx) error {
		ids, err := tx.Members(KeyAllUsers)
		n = len(ids)
		return err
	})
	return n, err
}

func claim(tx Tx, key, userID, field string) error {
	holder, err := tx.Get(key)
	if err == nil && string(holder) != userID {
		return apperr.Conflict(field + " already taken").
			WithDetails(map[string]string{field: "already taken"})
	}
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	return tx.Set(key, []byte(userID))
}

func getUser(tx Tx, id string) (*domain.User, error) {
	data, err := tx.Get(UserKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, apperr.NotFoundf("user %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := decode(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
