package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN", "gw")
	t.Setenv("GAME_SERVER_TOKEN", "gs")
	t.Setenv("ADMIN_KEY_HASH", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA")
}

func TestLoadDefaultsSQLite(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("NOTIFY_ITEM_NAMES", "AWP | Dragon Lore, ★ Karambit | Fade ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, [3]int{5, 10, 15}, cfg.Discounts())
	assert.Equal(t, []string{"AWP | Dragon Lore", "★ Karambit | Fade"}, cfg.NotifyItemNames)
}

func TestLoadRequiresTokens(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DBDriver:              DriverPostgres,
			DBPassword:            "secret",
			DBMaxConns:            10,
			DBMinConns:            1,
			RateLimitRequests:     5,
			RateLimitWindow:       time.Minute,
			EconomyHistoryPageMax: 50,
			NotifyQueueSize:       16,
			AdminMaxAttempts:      3,
			AdminLockout:          time.Hour,
			JobTimeout:            30 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "postgres without password", mutate: func(c *Config) { c.DBPassword = "" }, wantErr: true},
		{name: "min conns above max", mutate: func(c *Config) { c.DBMinConns = 20 }, wantErr: true},
		{name: "discount out of range", mutate: func(c *Config) { c.CaseDiscountGold = 100 }, wantErr: true},
		{name: "negative accrual", mutate: func(c *Config) { c.AccrualPerKill = -1 }, wantErr: true},
		{name: "telegram without chat", mutate: func(c *Config) { c.NotifyTelegramToken = "t" }, wantErr: true},
		{name: "no job timeout", mutate: func(c *Config) { c.JobTimeout = 0 }, wantErr: true},
		{name: "no admin lockout", mutate: func(c *Config) { c.AdminMaxAttempts = 0 }, wantErr: true},
		{name: "negative starting balance", mutate: func(c *Config) { c.EconomyStartingBalance = -5 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "souls", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/souls?sslmode=disable", c.DatabaseDSN())
}
