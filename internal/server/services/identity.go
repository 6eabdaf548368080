// Package services holds the application's use cases: registering an
// identity, checking credentials and tracking the signed-in user in the
// session.
package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"
	"unicode"

	"github.com/sethvargo/go-retry"
	"golang.org/x/crypto/bcrypt"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/models"
	"github.com/elegance/identity-provider/internal/server/repositories/users"
	"github.com/elegance/identity-provider/internal/server/session"
	"github.com/elegance/identity-provider/internal/shared"
)

const (
	minPasswordLength = 8

	// uuid collisions are unique-constraint races; one redraw almost always
	// resolves them, two is already paranoid.
	saveRetries = 2
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Identity implements registration and authentication over a user
// repository.
type Identity struct {
	repo       users.Repository
	log        logging.Logger
	bcryptCost int
}

func NewIdentity(repo users.Repository, log logging.Logger, bcryptCost int) *Identity {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Identity{repo: repo, log: log, bcryptCost: bcryptCost}
}

// Register creates a new identity for the given credentials. The password is
// stored only as a bcrypt hash. A uuid claimed concurrently by another
// registration is redrawn and the save retried; a duplicate email is
// reported as shared.ErrEmailAlreadyExists whether it is caught by the
// pre-check or by the store's constraint.
func (s *Identity) Register(ctx context.Context, email, password string) (*models.User, error) {
	if err := validateRegistration(email, password); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var user *models.User
	backoff := retry.WithMaxRetries(saveRetries, retry.NewConstant(10*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		u, err := s.repo.NewUser(ctx)
		if err != nil {
			return err
		}
		u.Email = email
		u.PasswordHash = string(hash)

		if err := s.repo.Save(ctx, u); err != nil {
			if users.IsUUIDConflict(err) {
				s.log.Warn(ctx, "uuid already claimed, redrawing", "uuid", u.UUID)
				return retry.RetryableError(err)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if users.IsEmailConflict(err) {
			return nil, shared.ErrEmailAlreadyExists
		}
		return nil, err
	}

	s.log.Info(ctx, "user registered", "uuid", user.UUID)
	return user, nil
}

// Authenticate checks the credentials and returns the matching user. A
// missing account and a wrong password produce the same
// shared.ErrInvalidCredentials, so callers cannot tell which one failed.
func (s *Identity) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.log.Warn(ctx, "authentication failed")
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn(ctx, "authentication failed")
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login marks the session as belonging to the given user.
func (s *Identity) Login(ctx context.Context, sess *session.Session, user *models.User) error {
	if err := sess.Set(ctx, session.UserIDKey, strconv.FormatInt(user.ID, 10)); err != nil {
		return err
	}
	s.log.Info(ctx, "user logged in", "uuid", user.UUID)
	return nil
}

// Logout drops the user binding from the session. Logging out an anonymous
// session is a no-op.
func (s *Identity) Logout(ctx context.Context, sess *session.Session) error {
	return sess.Unset(ctx, session.UserIDKey)
}

// CurrentUser resolves the session's user binding back to a record.
// Anonymous sessions get shared.ErrNotFound.
func (s *Identity) CurrentUser(ctx context.Context, sess *session.Session) (*models.User, error) {
	v, err := sess.Get(ctx, session.UserIDKey)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	return s.repo.Find(ctx, id)
}

func validateRegistration(email, password string) error {
	problems := shared.ValidationError{}

	switch {
	case email == "":
		problems["email"] = "email is required"
	case !emailPattern.MatchString(email):
		problems["email"] = "email is not a valid address"
	}

	switch {
	case password == "":
		problems["password"] = "password is required"
	case len(password) < minPasswordLength:
		problems["password"] = "password must be at least 8 characters long"
	case !passwordStrongEnough(password):
		problems["password"] = "password must contain upper and lower case letters, a digit and a symbol"
	}

	if len(problems) > 0 {
		return problems
	}
	return nil
}

func passwordStrongEnough(password string) bool {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
