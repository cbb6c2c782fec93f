package postgres

import (
	"slotwise/config"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoint_Descriptor(t *testing.T) {
	e := endpoint{
		username: "app",
		password: "p@ss word",
		host:     "db",
		port:     "5432",
		dbName:   "slotwise",
		sslMode:  "disable",
		timezone: "Asia/Jakarta",
	}

	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/slotwise?sslmode=disable&timezone=Asia%2FJakarta", e.Descriptor())

	e.timezone = ""
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/slotwise?sslmode=disable", e.Descriptor())
}

func TestSessionTimezone(t *testing.T) {
	cfg := config.Config{}
	cfg.App.Timezone = "UTC"

	assert.Equal(t, "UTC", sessionTimezone(cfg, ""))
	assert.Equal(t, "Asia/Jakarta", sessionTimezone(cfg, "Asia/Jakarta"))
}
