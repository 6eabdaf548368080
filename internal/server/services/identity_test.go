package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/models"
	"github.com/elegance/identity-provider/internal/server/session"
	"github.com/elegance/identity-provider/internal/shared"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

// fakeRepo keeps users in memory and can be scripted to fail saves with
// constraint violations.
type fakeRepo struct {
	byID     map[int64]*models.User
	nextID   int64
	saveErrs []error
	newUsers int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeRepo) NewUser(ctx context.Context) (*models.User, error) {
	f.newUsers++
	return &models.User{UUID: uuid.NewString()}, nil
}

func (f *fakeRepo) Find(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) All(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) Save(_ context.Context, u *models.User) error {
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, u *models.User) error {
	delete(f.byID, u.ID)
	u.ID = 0
	return nil
}

func (f *fakeRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeRepo) ExistsByUUID(_ context.Context, id string) (bool, error) {
	for _, u := range f.byID {
		if u.UUID == id {
			return true, nil
		}
	}
	return false, nil
}

func uuidConflictErr() error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_uuid_key"})
}

func emailConflictErr() error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
}

const goodPassword = "Str0ng!pass"

func newService(repo *fakeRepo) *Identity {
	return NewIdentity(repo, nopLogger{}, bcrypt.MinCost)
}

func TestRegister_CreatesUser(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newService(repo)

	u, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)
	require.True(t, u.Persisted())
	require.NotEmpty(t, u.UUID)
	require.Equal(t, "amy@example.com", u.Email)

	// the password is stored only as a hash
	require.NotEqual(t, goodPassword, u.PasswordHash)
	require.NotContains(t, u.PasswordHash, goodPassword)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(goodPassword)))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "amy@example.com", "An0ther!pass")
	require.ErrorIs(t, err, shared.ErrEmailAlreadyExists)
}

func TestRegister_EmailConstraintRace(t *testing.T) {
	// the pre-check passes but a concurrent registration wins the insert
	ctx := context.Background()
	repo := newFakeRepo()
	repo.saveErrs = []error{emailConflictErr()}
	svc := newService(repo)

	_, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.ErrorIs(t, err, shared.ErrEmailAlreadyExists)
}

func TestRegister_RetriesOnUUIDConflict(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.saveErrs = []error{uuidConflictErr()}
	svc := newService(repo)

	u, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)
	require.True(t, u.Persisted())
	require.Equal(t, 2, repo.newUsers, "expected a redraw after the conflict")
}

func TestRegister_GivesUpAfterRepeatedUUIDConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.saveErrs = []error{uuidConflictErr(), uuidConflictErr(), uuidConflictErr()}
	svc := newService(repo)

	_, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrEmailAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"empty email", "", goodPassword, "email"},
		{"malformed email", "not-an-address", goodPassword, "email"},
		{"empty password", "amy@example.com", "", "password"},
		{"short password", "amy@example.com", "Ab1!", "password"},
		{"no upper case", "amy@example.com", "weak1pass!", "password"},
		{"no digit", "amy@example.com", "Weakpass!", "password"},
		{"no symbol", "amy@example.com", "Weak1pass", "password"},
	}

	repo := newFakeRepo()
	svc := newService(repo)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password)
			var verr shared.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr, tt.field)
		})
	}

	// nothing reached the repository
	require.Empty(t, repo.byID)
}

func TestAuthenticate_Success(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newService(repo)

	created, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)

	_, unknownErr := svc.Authenticate(ctx, "nobody@example.com", goodPassword)
	_, wrongErr := svc.Authenticate(ctx, "amy@example.com", "Wr0ng!pass")

	// unknown account and wrong password are indistinguishable
	require.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
	require.Equal(t, unknownErr, wrongErr)
}

func TestLoginLogout_SessionTransitions(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newService(repo)

	u, err := svc.Register(ctx, "amy@example.com", goodPassword)
	require.NoError(t, err)

	sess := session.New(session.NewMemoryStore(), "sid-1")

	_, err = svc.CurrentUser(ctx, sess)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.Login(ctx, sess, u))

	got, err := svc.CurrentUser(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.NoError(t, svc.Logout(ctx, sess))

	_, err = svc.CurrentUser(ctx, sess)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// logging out again is harmless
	require.NoError(t, svc.Logout(ctx, sess))
}
