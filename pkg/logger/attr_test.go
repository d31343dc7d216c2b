package logger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/opencouncil/councilkit/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, "", logger.Error(nil).Key)
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	assert.Equal(t, "component", logger.Component("dbrouter").Key)
	assert.Equal(t, "dbrouter", logger.Component("dbrouter").Value.String())

	assert.Equal(t, "tenant_id", logger.TenantID(id).Key)
	assert.Equal(t, "", logger.TenantID(nil).Key)

	assert.Equal(t, "subdomain", logger.Subdomain("springfield").Key)
	assert.Equal(t, "database_id", logger.DatabaseID("db_springfield").Key)
	assert.Equal(t, "task", logger.Task("database").Key)
	assert.Equal(t, "status", logger.Status("up").Key)
	assert.Equal(t, "host", logger.Host("springfield.council.example").Key)

	d := logger.Duration(250 * time.Millisecond)
	assert.Equal(t, "duration", d.Key)
	assert.Equal(t, 250*time.Millisecond, d.Value.Duration())

	assert.Equal(t, "user_id", logger.UserID(id).Key)
	assert.Equal(t, "", logger.UserID(nil).Key)
}
