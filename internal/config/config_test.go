package config

import (
	"os"
	"path/filepath"
	"testing"

	"roomsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: roomsync
  environment: test
database:
  path: ./test.db
api:
  enabled: true
  auth:
    api_keys:
      - key: secret
        user_id: 42
        name: alice
        role: user
booking:
  max_booking_days: 30
rooms:
  - id: 1
    name: aurora
    is_active: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roomsync", cfg.App.Name)
	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Booking.MaxBookingDays)
	require.Len(t, cfg.Rooms, 1)
	assert.Equal(t, "aurora", cfg.Rooms[0].Name)

	// Defaults.
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.True(t, cfg.API.Auth.IsEnabled())
	assert.Equal(t, models.DefaultFreeBusyCacheTTL, cfg.Booking.FreeBusyTTLSecs)
	assert.Equal(t, models.DefaultSyncTimeoutSeconds, cfg.Calendar.TimeoutSeconds)
}

func TestLoad_AuthExplicitlyDisabled(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ./test.db
api:
  enabled: true
  auth:
    enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.API.Auth.Enabled)
	assert.False(t, cfg.API.Auth.IsEnabled())
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/expanded.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: roomsync
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path is required")
}

func TestLoad_SyncWithoutCredentials(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ./test.db
calendar:
  sync_enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestValidate_APIKeys(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "./test.db"}}

	cfg.API.Auth.APIKeys = []APIClientKey{{Key: "", Name: "broken"}}
	assert.Error(t, cfg.Validate())

	cfg.API.Auth.APIKeys = []APIClientKey{{Key: "secret", Name: "no-user"}}
	assert.Error(t, cfg.Validate())

	cfg.API.Auth.APIKeys = []APIClientKey{{Key: "secret", UserID: 1, Name: "bad-role", Role: "superuser"}}
	assert.Error(t, cfg.Validate())

	cfg.API.Auth.APIKeys = []APIClientKey{{Key: "secret", UserID: 1, Name: "ok", Role: models.RoleAdmin}}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRooms(t *testing.T) {
	err := ValidateRooms([]models.Room{
		{ID: 1, Name: "aurora"},
		{ID: 1, Name: "borealis"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate room ID")

	err = ValidateRooms([]models.Room{
		{ID: 1, Name: "aurora"},
		{ID: 2, Name: "aurora"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate room name")

	err = ValidateRooms([]models.Room{{ID: 0, Name: "aurora"}})
	assert.Error(t, err)

	err = ValidateRooms([]models.Room{
		{ID: 1, Name: "aurora"},
		{ID: 2, Name: "borealis"},
	})
	assert.NoError(t, err)
}
