package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "equipmatch", cfg.MongoDB.DBName)
	assert.Equal(t, "Ledger!A:K", cfg.Sheets.LedgerRange)
	assert.Equal(t, "MELedger!A:K", cfg.Sheets.MELedgerRange)
	assert.Equal(t, "system", cfg.Matching.Actor)
	assert.Equal(t, "equipmatch-local", cfg.Matching.Origin)
	assert.Equal(t, 90*time.Second, cfg.Matching.SessionTTL)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.OverdueCron)
	assert.Equal(t, "Asia/Tokyo", cfg.Scheduler.Timezone)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MATCHING_ACTOR", "棚卸し担当")
	t.Setenv("MATCHING_SESSION_TTL", "2m")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "棚卸し担当", cfg.Matching.Actor)
	assert.Equal(t, 2*time.Minute, cfg.Matching.SessionTTL)
}

func TestLoadInvalidTTL(t *testing.T) {
	t.Setenv("MATCHING_SESSION_TTL", "ninety seconds")
	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "8080"},
			MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "equipmatch"},
			Matching: MatchingConfig{
				Origin:     "equipmatch-local",
				SessionTTL: time.Minute,
			},
			Scheduler: SchedulerConfig{OverdueCron: "0 9 * * *", Timezone: "Asia/Tokyo"},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.MongoDB.URI = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Matching.Origin = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Matching.SessionTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Sheets.CredentialsPath = "/etc/creds.json"
	assert.Error(t, cfg.Validate(), "credentials without a spreadsheet id")
	cfg.Sheets.SpreadsheetID = "sheet-1"
	assert.NoError(t, cfg.Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
