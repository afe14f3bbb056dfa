package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/modules/user"
)

var _ user.Repository = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range s.t.users {
		if r.val.Email == u.Email {
			return apperror.Conflict("email %s is already registered", u.Email)
		}
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.t.users[u.ID] = record[user.User]{seq: s.next(), val: *u}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	for _, r := range s.t.users {
		if r.val.Email == email {
			u := r.val
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user %s not found", email)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r, ok := s.t.users[id]
	if !ok {
		return nil, apperror.NotFound("user %s not found", id)
	}
	u := r.val
	return &u, nil
}

func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	r, ok := s.t.users[id]
	if !ok {
		return apperror.NotFound("user %s not found", id)
	}
	r.val.IsActive = false
	r.val.UpdatedAt = s.now()
	s.t.users[id] = r
	return nil
}
