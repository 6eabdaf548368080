// Package users persists identity records and owns the uniqueness rules
// around their public identifiers.
package users

import (
	"context"

	"github.com/elegance/identity-provider/internal/server/models"
)

type Repository interface {
	// NewUser constructs an unsaved record with a freshly drawn uuid that is
	// not in use at the time of the check. The store's unique constraint is
	// the real guarantee; callers retry a conflicting save.
	NewUser(ctx context.Context) (*models.User, error)

	Find(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	All(ctx context.Context) ([]*models.User, error)

	Save(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, u *models.User) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUUID(ctx context.Context, uuid string) (bool, error)
}
