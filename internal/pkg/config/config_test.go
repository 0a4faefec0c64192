package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(viper.New())

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DbDriver)
	assert.Equal(t, int64(100), cfg.Economy.GrantAmount)
	assert.Equal(t, 24*time.Hour, cfg.Economy.ClaimWindow)
	assert.Equal(t, int64(1000), cfg.Economy.StartingBound)
	assert.Equal(t, []string{"*"}, cfg.CorsOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GRANT_AMOUNT", "250")
	t.Setenv("CLAIM_WINDOW", "12h")
	t.Setenv("STARTING_BOUND", "500")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Load(viper.New())

	assert.Equal(t, int64(250), cfg.Economy.GrantAmount)
	assert.Equal(t, 12*time.Hour, cfg.Economy.ClaimWindow)
	assert.Equal(t, int64(500), cfg.Economy.StartingBound)
	assert.Equal(t, DriverSqlite, cfg.DbDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CorsOrigins)
}

func TestLoadRejectsNonPositiveEconomy(t *testing.T) {
	t.Setenv("GRANT_AMOUNT", "0")
	t.Setenv("STARTING_BOUND", "-3")

	cfg := Load(viper.New())

	assert.Equal(t, DefaultEconomy().GrantAmount, cfg.Economy.GrantAmount)
	assert.Equal(t, DefaultEconomy().StartingBound, cfg.Economy.StartingBound)
}
