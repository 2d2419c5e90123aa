// Package config загружает конфигурацию сервиса экономики из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Перед этим cmd/souls подгружает необязательный .env через godotenv.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// postgres — основной режим (несколько инстансов сервиса, блокировки строк).
	// sqlite — одиночный инстанс / локальная разработка.
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"souls"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"souls"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/souls.db"`

	// --- Application ---
	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel  string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppLogFormat string `envconfig:"APP_LOG_FORMAT" default:"text"`
	AppTimezone  string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Токен шлюза: веб-клиент ходит только через него, шлюз кладёт X-Player-ID.
	GatewayToken string `envconfig:"GATEWAY_TOKEN" required:"true"`
	// Токен игровых серверов (отчёты о статистике). Это и есть граница доверия.
	GameServerToken string `envconfig:"GAME_SERVER_TOKEN" required:"true"`
	// Argon2id-хеш админского ключа (scripts/generate_hash.go).
	AdminKeyHash string `envconfig:"ADMIN_KEY_HASH" required:"true"`
	// Защита от перебора: после AdminMaxAttempts неудач с одного IP доступ закрыт на AdminLockout.
	AdminMaxAttempts int           `envconfig:"ADMIN_MAX_ATTEMPTS" default:"3"`
	AdminLockout     time.Duration `envconfig:"ADMIN_LOCKOUT" default:"1h"`

	// --- Rate Limiting (открытие кейсов) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Economy ---
	EconomyStartingBalance int64  `envconfig:"ECONOMY_STARTING_BALANCE" default:"0"`
	EconomyCurrencyName    string `envconfig:"ECONOMY_CURRENCY_NAME" default:"души"`
	EconomyHistoryPageMax  int    `envconfig:"ECONOMY_HISTORY_PAGE_MAX" default:"100"`

	// --- Accrual ---
	AccrualPerKill   int64 `envconfig:"ACCRUAL_PER_KILL" default:"1"`
	AccrualPerMinute int64 `envconfig:"ACCRUAL_PER_MINUTE" default:"1"`

	// --- Cases ---
	// Скидка на стоимость кейса в процентах по уровню привилегии.
	CaseDiscountBronze int    `envconfig:"CASE_DISCOUNT_BRONZE" default:"5"`
	CaseDiscountSilver int    `envconfig:"CASE_DISCOUNT_SILVER" default:"10"`
	CaseDiscountGold   int    `envconfig:"CASE_DISCOUNT_GOLD" default:"15"`
	CatalogPath        string `envconfig:"CATALOG_PATH" default:""`

	// --- Notifications ---
	NotifyTelegramToken  string        `envconfig:"NOTIFY_TELEGRAM_TOKEN" default:""`
	NotifyTelegramChatID int64         `envconfig:"NOTIFY_TELEGRAM_CHAT_ID" default:"0"`
	NotifyQueueSize      int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	NotifyTimeout        time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	NotifyMinRarity      string        `envconfig:"NOTIFY_MIN_RARITY" default:"covert"`
	NotifyItemNamesRaw   string        `envconfig:"NOTIFY_ITEM_NAMES" default:""`
	NotifyItemNames      []string      `envconfig:"-"` // заполним вручную

	// --- Jobs ---
	CronGiveawayClose string `envconfig:"CRON_GIVEAWAY_CLOSE" default:"* * * * *"`
	CronPayoutRetry   string `envconfig:"CRON_PAYOUT_RETRY" default:"*/5 * * * *"`
	// Ограничение на один прогон задачи.
	JobTimeout time.Duration `envconfig:"JOB_TIMEOUT" default:"30s"`

	// --- Feature Flags ---
	FeatureCasesEnabled     bool `envconfig:"FEATURE_CASES_ENABLED" default:"true"`
	FeatureGiveawaysEnabled bool `envconfig:"FEATURE_GIVEAWAYS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Discounts возвращает скидки на кейсы по уровням: bronze, silver, gold.
func (c *Config) Discounts() [3]int {
	return [3]int{c.CaseDiscountBronze, c.CaseDiscountSilver, c.CaseDiscountGold}
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для DB_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH не задан")
		}
	default:
		return fmt.Errorf("неизвестный DB_DRIVER %q", c.DBDriver)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	if c.AdminMaxAttempts <= 0 || c.AdminLockout <= 0 {
		return fmt.Errorf("ADMIN_MAX_ATTEMPTS и ADMIN_LOCKOUT должны быть > 0")
	}
	if c.EconomyStartingBalance < 0 {
		return fmt.Errorf("ECONOMY_STARTING_BALANCE не может быть отрицательным")
	}
	if c.EconomyHistoryPageMax <= 0 {
		return fmt.Errorf("ECONOMY_HISTORY_PAGE_MAX должен быть > 0")
	}
	if c.AccrualPerKill < 0 || c.AccrualPerMinute < 0 {
		return fmt.Errorf("ставки начисления не могут быть отрицательными")
	}
	for _, d := range c.Discounts() {
		if d < 0 || d > 99 {
			return fmt.Errorf("скидка на кейс должна быть в диапазоне 0..99, получено %d", d)
		}
	}
	if c.NotifyTelegramToken != "" && c.NotifyTelegramChatID == 0 {
		return fmt.Errorf("NOTIFY_TELEGRAM_CHAT_ID обязателен вместе с NOTIFY_TELEGRAM_TOKEN")
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT должен быть > 0")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.NotifyItemNames = parseCSV(cfg.NotifyItemNamesRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseCSV режет строку по запятым и выкидывает пустые элементы.
// Названия скинов содержат пробелы и "|", поэтому внутри элемента ничего не трогаем.
func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
