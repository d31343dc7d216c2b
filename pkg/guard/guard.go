package guard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// Realm identifies which side of the platform a guard authenticates against.
type Realm string

const (
	// RealmCentral authenticates platform administrators against the central
	// user store.
	RealmCentral Realm = "central"
	// RealmTenant authenticates council staff and residents against the
	// tenant's own user store.
	RealmTenant Realm = "tenant"
)

// DB is the minimal query surface the stores need. Both *pgxpool.Pool and a
// routed dbrouter.Pool satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// User is an account row in whichever user store the guard selected.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore reads and writes users on one concrete connection. Which
// connection that is, central or a specific tenant's, is decided by the
// Router at call time, never stored across requests.
type UserStore struct {
	db DB
}

// NewUserStore binds a user store to a connection.
func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *UserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// SetPasswordHash replaces the stored credential for one user.
func (s *UserStore) SetPasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Guard authenticates users against one realm's user store.
type Guard struct {
	Realm Realm
	Users *UserStore

	bcryptCost int
}

// Authenticate verifies email/password credentials. It returns
// ErrInvalidCredentials for both unknown users and wrong passwords so that
// callers cannot distinguish the two.
func (g *Guard) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := g.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword produces a credential hash with the guard's configured cost.
func (g *Guard) HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), g.bcryptCost)
}
