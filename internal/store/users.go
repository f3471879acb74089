package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finledger/finledger/internal/domain"
)

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translateError(err))
	}
	return nil
}

// GetUser fetches a user by internal id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("get user: %w", translateError(err))
	}
	return &user, nil
}

// GetUserBySubject resolves the auth collaborator's opaque subject id to the
// internal owner row.
func (s *Store) GetUserBySubject(ctx context.Context, subjectID string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "subject_id = ?", subjectID).Error
	if err != nil {
		return nil, fmt.Errorf("get user by subject: %w", translateError(err))
	}
	return &user, nil
}

// ResolveSubject satisfies the auth middleware's resolver contract.
func (s *Store) ResolveSubject(ctx context.Context, subjectID string) (uuid.UUID, error) {
	user, err := s.GetUserBySubject(ctx, subjectID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// ListUsers returns all users, used by the scheduled report job.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", translateError(err))
	}
	return users, nil
}
