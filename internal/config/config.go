package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config — неизменяемая конфигурация сервера. Заполняется один раз на старте
// (env поверх .env, флаги работают только если переменные не заданы)
// и передаётся в конструкторы по ссылке: внутри ядра ambient-чтений env нет.
type Config struct {
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	// Корневой секрет для обёртки мастер-ключей (см. service.KeyService).
	KeyWrapSecret string `env:"KEY_WRAP_SECRET"`

	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Каталог зашифрованного контента.
	StorageDir string `env:"STORAGE_DIR"`

	// Redis для счётчиков IDS и блокировок входа; пусто — in-memory fallback.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	UploadMaxSizeMB int `env:"UPLOAD_MAX_SIZE_MB"`

	// Периодичность зачистки файлов с истёкшим сроком, минуты.
	CleanupIntervalMinutes int `env:"CLEANUP_INTERVAL_MINUTES"`

	// Аренда файлового лока, минуты.
	LockTimeoutMinutes int `env:"LOCK_TIMEOUT_MINUTES"`

	// Порог неудачных входов до блокировки аккаунта и окно счётчика, секунды.
	MaxFailedLogins    int `env:"MAX_FAILED_LOGINS"`
	FailedLoginWindowS int `env:"FAILED_LOGIN_WINDOW_S"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.KeyWrapSecret, "key-wrap-secret", cfg.KeyWrapSecret, "корневой секрет обёртки мастер-ключей")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "каталог зашифрованного контента")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "адрес Redis (пусто — in-memory)")
	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.KeyWrapSecret == "" {
		cfg.KeyWrapSecret = "dev-key-wrap-secret"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "encrypted_storage"
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 100
	}
	if cfg.CleanupIntervalMinutes <= 0 {
		cfg.CleanupIntervalMinutes = 5
	}
	if cfg.LockTimeoutMinutes <= 0 {
		cfg.LockTimeoutMinutes = 15
	}
	if cfg.MaxFailedLogins <= 0 {
		cfg.MaxFailedLogins = 5
	}
	if cfg.FailedLoginWindowS <= 0 {
		cfg.FailedLoginWindowS = 600
	}

	// BaseURL должен быть вида "address:port" (без схемы и пути).
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	return cfg
}
