package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/models"
	"github.com/elegance/identity-provider/internal/server/storage"
	"github.com/elegance/identity-provider/internal/uuidx"
)

const (
	uniqueViolation = "23505"
	uuidConstraint  = "users_uuid_key"
	emailConstraint = "users_email_key"
)

// PostgresRepository stores users through the generic engine.
type PostgresRepository struct {
	engine *storage.Engine[models.User]
	uuids  uuidx.Generator
}

func descriptor() *storage.Descriptor[models.User] {
	return &storage.Descriptor[models.User]{
		Table: "users",
		Columns: []storage.Column{
			{Name: "uuid"},
			{Name: "email"},
			{Name: "password", Sensitive: true},
			{Name: "created_at", Cast: storage.CastTime},
		},
		Values: func(u *models.User) []any {
			return []any{u.UUID, u.Email, u.PasswordHash, u.CreatedAt}
		},
		Assign: func(u *models.User, vals []any) error {
			var ok bool
			if u.UUID, ok = vals[0].(string); !ok {
				return errors.New("users: uuid is not a string")
			}
			if u.Email, ok = vals[1].(string); !ok {
				return errors.New("users: email is not a string")
			}
			if u.PasswordHash, ok = vals[2].(string); !ok {
				return errors.New("users: password is not a string")
			}
			if u.CreatedAt, ok = vals[3].(time.Time); !ok {
				return errors.New("users: created_at is not a time")
			}
			return nil
		},
		ID: func(u *models.User) *int64 { return &u.ID },
	}
}

func NewPostgresRepository(engine *storage.Engine[models.User], uuids uuidx.Generator) *PostgresRepository {
	return &PostgresRepository{engine: engine, uuids: uuids}
}

// NewEngine builds the engine a PostgresRepository expects, wired to the
// users table descriptor.
func NewEngine(db *sql.DB, log logging.Logger) *storage.Engine[models.User] {
	return storage.New(db, descriptor(), log)
}

// NewUser draws uuids until one is free. The check is advisory; a concurrent
// writer can still win the same uuid, which surfaces as a unique violation on
// save.
func (r *PostgresRepository) NewUser(ctx context.Context) (*models.User, error) {
	for {
		id, err := r.uuids.Generate()
		if err != nil {
			return nil, err
		}
		taken, err := r.ExistsByUUID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !taken {
			return &models.User{UUID: id}, nil
		}
	}
}

func (r *PostgresRepository) Find(ctx context.Context, id int64) (*models.User, error) {
	return r.engine.Find(ctx, id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.engine.FindWhere(ctx, "email = $1", email)
}

func (r *PostgresRepository) All(ctx context.Context) ([]*models.User, error) {
	return r.engine.All(ctx)
}

// Save stamps the creation time on first persistence and dispatches to the
// engine.
func (r *PostgresRepository) Save(ctx context.Context, u *models.User) error {
	if u.ID == 0 && u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return r.engine.Save(ctx, u)
}

func (r *PostgresRepository) Delete(ctx context.Context, u *models.User) error {
	return r.engine.Delete(ctx, u)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.engine.CountWhere(ctx, "email = $1", email)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) ExistsByUUID(ctx context.Context, uuid string) (bool, error) {
	n, err := r.engine.CountWhere(ctx, "uuid = $1", uuid)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsUUIDConflict reports whether err is a unique violation on the uuid
// column, meaning another writer claimed the same identifier first.
func IsUUIDConflict(err error) bool {
	return isUniqueViolation(err, uuidConstraint)
}

// IsEmailConflict reports whether err is a unique violation on the email
// column.
func IsEmailConflict(err error) bool {
	return isUniqueViolation(err, emailConstraint)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
