package guard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestToken_SignVerify(t *testing.T) {
	t.Parallel()

	payload := resetTokenPayload{
		UserID:   uuid.New(),
		Realm:    RealmTenant,
		ExpireAt: time.Now().Add(time.Hour).Unix(),
	}

	token, err := signToken(payload, testSecret)
	require.NoError(t, err)

	got, err := verifyToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestToken_RejectsForgeries(t *testing.T) {
	t.Parallel()

	payload := resetTokenPayload{
		UserID:   uuid.New(),
		Realm:    RealmCentral,
		ExpireAt: time.Now().Add(time.Hour).Unix(),
	}
	token, err := signToken(payload, testSecret)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		_, err := verifyToken(token, "other-secret")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		other, err := signToken(resetTokenPayload{
			UserID:   uuid.New(),
			Realm:    RealmCentral,
			ExpireAt: payload.ExpireAt,
		}, testSecret)
		require.NoError(t, err)

		// Splice the signature of one token onto the payload of another.
		forged := other[:len(other)-23] + token[len(token)-23:]
		_, err = verifyToken(forged, testSecret)
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{"", "nodot", "not!base64.sig", "payload."} {
			_, err := verifyToken(bad, testSecret)
			assert.ErrorIs(t, err, ErrInvalidResetToken, "token %q", bad)
		}
	})
}

// The realm and expiry checks run before any store access, so a broker with
// nil stores exercises them in isolation.
func TestBroker_RejectsBeforeStoreAccess(t *testing.T) {
	t.Parallel()

	t.Run("wrong realm", func(t *testing.T) {
		t.Parallel()

		token, err := signToken(resetTokenPayload{
			UserID:   uuid.New(),
			Realm:    RealmCentral,
			ExpireAt: time.Now().Add(time.Hour).Unix(),
		}, testSecret)
		require.NoError(t, err)

		b := &PasswordBroker{Realm: RealmTenant, secret: testSecret}
		_, err = b.ResetPassword(context.Background(), token, "new-password")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		token, err := signToken(resetTokenPayload{
			UserID:   uuid.New(),
			Realm:    RealmTenant,
			ExpireAt: time.Now().Add(-time.Minute).Unix(),
		}, testSecret)
		require.NoError(t, err)

		b := &PasswordBroker{Realm: RealmTenant, secret: testSecret}
		_, err = b.ResetPassword(context.Background(), token, "new-password")
		assert.ErrorIs(t, err, ErrResetTokenExpired)
	})
}
