package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Port            string
	LogLevel        string
	DbDriver        string
	DbUrl           string
	GoogleProjectId string
	CorsOrigins     []string

	Economy Economy

	AuditSchedule string
	IntentRate    float64
	IntentBurst   int
}

// Economy holds the tunables of the points game.
type Economy struct {
	GrantAmount   int64
	ClaimWindow   time.Duration
	StartingBound int64
}

func DefaultEconomy() Economy {
	return Economy{
		GrantAmount:   100,
		ClaimWindow:   24 * time.Hour,
		StartingBound: 1000,
	}
}

func setDefaults(v *viper.Viper) {
	economy := DefaultEconomy()

	v.SetDefault("PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_URL", "")
	v.SetDefault("GOOGLE_PROJECT_ID", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("GRANT_AMOUNT", economy.GrantAmount)
	v.SetDefault("CLAIM_WINDOW", economy.ClaimWindow)
	v.SetDefault("STARTING_BOUND", economy.StartingBound)
	v.SetDefault("AUDIT_SCHEDULE", "@every 30m")
	v.SetDefault("INTENT_RATE", 5.0)
	v.SetDefault("INTENT_BURST", 10)
}

// Load reads the configuration from the environment and, when present,
// from the .env file in the working directory.
func Load(v *viper.Viper) Config {
	setDefaults(v)
	v.AutomaticEnv()
	v.SetConfigFile("./.env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using environment only")
	}

	cfg := Config{
		Port:            v.GetString("PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		DbDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		DbUrl:           v.GetString("DB_URL"),
		GoogleProjectId: v.GetString("GOOGLE_PROJECT_ID"),
		CorsOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		Economy: Economy{
			GrantAmount:   v.GetInt64("GRANT_AMOUNT"),
			ClaimWindow:   v.GetDuration("CLAIM_WINDOW"),
			StartingBound: v.GetInt64("STARTING_BOUND"),
		},
		AuditSchedule: v.GetString("AUDIT_SCHEDULE"),
		IntentRate:    v.GetFloat64("INTENT_RATE"),
		IntentBurst:   v.GetInt("INTENT_BURST"),
	}

	defaults := DefaultEconomy()
	if cfg.Economy.GrantAmount <= 0 {
		log.Warn().Int64("grantAmount", cfg.Economy.GrantAmount).Msg("Invalid GRANT_AMOUNT, using default")
		cfg.Economy.GrantAmount = defaults.GrantAmount
	}
	if cfg.Economy.ClaimWindow <= 0 {
		log.Warn().Dur("claimWindow", cfg.Economy.ClaimWindow).Msg("Invalid CLAIM_WINDOW, using default")
		cfg.Economy.ClaimWindow = defaults.ClaimWindow
	}
	if cfg.Economy.StartingBound <= 0 {
		log.Warn().Int64("startingBound", cfg.Economy.StartingBound).Msg("Invalid STARTING_BOUND, using default")
		cfg.Economy.StartingBound = defaults.StartingBound
	}

	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
