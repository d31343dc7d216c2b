package guard

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// resetTokenPayload is the data encoded in a password reset token.
type resetTokenPayload struct {
	UserID   uuid.UUID `json:"uid"`
	Realm    Realm     `json:"realm"`
	ExpireAt int64     `json:"exp"`
}

// TokenStore persists hashed reset tokens on one concrete connection. A
// tenant's reset tokens live in the tenant's own database; central tokens
// live on the central connection. Only the hash ever touches storage.
type TokenStore struct {
	db DB
}

// NewTokenStore binds a token store to a connection.
func NewTokenStore(db DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) insert(ctx context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token_hash = $1, expires_at = $3`,
		tokenHash, userID, expiresAt,
	)
	return err
}

// consume atomically deletes the token row and returns its owner. A missing
// row means the token was never issued here, was already used, or belongs to
// another realm's store.
func (s *TokenStore) consume(ctx context.Context, tokenHash []byte) (uuid.UUID, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := s.db.QueryRow(ctx, `
		DELETE FROM password_reset_tokens WHERE token_hash = $1
		RETURNING user_id, expires_at`,
		tokenHash,
	).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrInvalidResetToken
		}
		return uuid.Nil, err
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrResetTokenExpired
	}
	return userID, nil
}

// PasswordBroker issues and redeems password reset tokens against one
// realm's user and token stores. Like Guard, a broker is constructed fresh
// per call site and holds no cross-request state.
type PasswordBroker struct {
	Realm  Realm
	Users  *UserStore
	Tokens *TokenStore

	secret     string
	ttl        time.Duration
	bcryptCost int
}

// IssueResetToken creates a signed reset token for the account with the
// given email and records its hash in the realm's token store. The plain
// token is returned for delivery (mail transport is external) and is never
// persisted.
func (b *PasswordBroker) IssueResetToken(ctx context.Context, email string) (string, error) {
	u, err := b.Users.ByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	payload := resetTokenPayload{
		UserID:   u.ID,
		Realm:    b.Realm,
		ExpireAt: time.Now().Add(b.ttl).Unix(),
	}
	token, err := signToken(payload, b.secret)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256([]byte(token))
	if err := b.Tokens.insert(ctx, hash[:], u.ID, time.Unix(payload.ExpireAt, 0)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword redeems a reset token and replaces the user's credential.
// The token must verify, must not be expired, must match the broker's realm,
// and its hash must still exist in this realm's token store.
func (b *PasswordBroker) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	payload, err := verifyToken(token, b.secret)
	if err != nil {
		return nil, err
	}
	if payload.Realm != b.Realm {
		return nil, ErrInvalidResetToken
	}
	if time.Now().Unix() > payload.ExpireAt {
		return nil, ErrResetTokenExpired
	}

	hash := sha256.Sum256([]byte(token))
	userID, err := b.Tokens.consume(ctx, hash[:])
	if err != nil {
		return nil, err
	}
	if userID != payload.UserID {
		return nil, ErrInvalidResetToken
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), b.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := b.Users.SetPasswordHash(ctx, userID, newHash); err != nil {
		return nil, err
	}
	return b.Users.ByID(ctx, userID)
}

// signToken encodes the payload as JSON and appends a truncated HMAC-SHA256
// signature: base64(payload) + "." + base64(sig[:16]).
func signToken(payload resetTokenPayload, secret string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	sig := h.Sum(nil)[:16]

	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func verifyToken(token, secret string) (resetTokenPayload, error) {
	var payload resetTokenPayload

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return payload, ErrInvalidResetToken
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return payload, ErrInvalidResetToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return payload, ErrInvalidResetToken
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	if !hmac.Equal(sig, h.Sum(nil)[:16]) {
		return payload, ErrInvalidResetToken
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, ErrInvalidResetToken
	}
	return payload, nil
}
