package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит конфигурацию сервера
type Config struct {
	ServerAddress    string `json:"server_address"`
	BaseURL          string `json:"base_url"`
	DatabaseDSN      string `json:"database_dsn"`
	PgMigrationsPath string `json:"pg_migrations_path"`
	AuthSecret       string `json:"auth_secret"`
	RateLimit        int    `json:"rate_limit"`         // запросов на окно
	RateWindowSec    int    `json:"rate_window_sec"`    // окно, секунды
	EnforceRateLimit bool   `json:"enforce_rate_limit"` // 429 вместо предупреждения
	AliasLength      int    `json:"alias_length"`
	AliasAttempts    int    `json:"alias_attempts"`
	EnableHTTPS      bool   `json:"enable_https"`
	TLSCertPath      string `json:"tls_cert_path"`
	TLSKeyPath       string `json:"tls_key_path"`
	Mode             string `json:"-"`
}

// RateWindow возвращает окно лимитера как time.Duration
func (cfg *Config) RateWindow() time.Duration {
	return time.Duration(cfg.RateWindowSec) * time.Second
}

// NewConfig инициализирует конфигурацию на основе аргументов командной строки
func NewConfig() *Config {

	viper.SetDefault("SERVER_ADDRESS", "localhost:8080") // Значения по умолчанию
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("PG_MIGRATIONS_PATH", "internal/migrations")
	viper.SetDefault("AUTH_SECRET", "linkdash-dev-secret")
	viper.SetDefault("RATE_LIMIT", 100)
	viper.SetDefault("RATE_WINDOW_SEC", 60)
	viper.SetDefault("ENFORCE_RATE_LIMIT", false)
	viper.SetDefault("ALIAS_LENGTH", 6)
	viper.SetDefault("ALIAS_ATTEMPTS", 24)
	viper.SetDefault("ENABLE_HTTPS", false)
	viper.SetDefault("TLS_CERT_PATH", "cert.pem")
	viper.SetDefault("TLS_KEY_PATH", "key.pem")

	viper.AutomaticEnv()

	// Читаем .env, если есть (не переопределяет переменные окружения!)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // Ошибку игнорируем, если файла нет

	// Определяем флаги, но НЕ задаем в них значения по умолчанию
	serverAddress := flag.String("a", "", "server address")
	baseURL := flag.String("b", "", "base URL")
	databaseDSN := flag.String("d", "", "PostgreSQL DSN")
	rateLimit := flag.Int("r", 0, "rate limit per window")
	rateWindow := flag.Int("w", 0, "rate limit window, seconds")
	enforceLimit := flag.Bool("enforce", false, "reject rate-limited requests with 429")
	enableHTTPS := flag.Bool("s", false, "enable HTTPS")
	tlsCertPath := flag.String("cert", "", "path to TLS certificate")
	tlsKeyPath := flag.String("key", "", "path to TLS key")
	configPath := flag.String("c", "", "path to JSON config file")
	flag.StringVar(configPath, "config", "", "path to JSON config file")

	flag.Parse()

	// Загружаем JSON-конфигурацию (если указана)
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG")
	}

	type rawJSON Config
	jsonCfg := &rawJSON{}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Printf("Не удалось прочитать JSON-файл конфигурации %q: %v", *configPath, err)
		} else if err := json.Unmarshal(data, jsonCfg); err != nil {
			log.Printf("Ошибка разбора JSON-файла конфигурации: %v", err)
		}
	}

	// Если переменные окружения заданы — они имеют высший приоритет
	cfg := &Config{
		ServerAddress:    viper.GetString("SERVER_ADDRESS"),
		BaseURL:          viper.GetString("BASE_URL"),
		DatabaseDSN:      viper.GetString("DATABASE_DSN"),
		PgMigrationsPath: viper.GetString("PG_MIGRATIONS_PATH"),
		AuthSecret:       viper.GetString("AUTH_SECRET"),
		RateLimit:        viper.GetInt("RATE_LIMIT"),
		RateWindowSec:    viper.GetInt("RATE_WINDOW_SEC"),
		EnforceRateLimit: viper.GetBool("ENFORCE_RATE_LIMIT"),
		AliasLength:      viper.GetInt("ALIAS_LENGTH"),
		AliasAttempts:    viper.GetInt("ALIAS_ATTEMPTS"),
		EnableHTTPS:      viper.GetBool("ENABLE_HTTPS"),
		TLSCertPath:      viper.GetString("TLS_CERT_PATH"),
		TLSKeyPath:       viper.GetString("TLS_KEY_PATH"),
	}

	// JSON-файл слабее переменных окружения: заполняет только поля,
	// для которых окружение ничего не задало
	override := func(env string, jsonVal string, target *string) {
		if jsonVal != "" && os.Getenv(env) == "" {
			*target = jsonVal
		}
	}
	override("SERVER_ADDRESS", jsonCfg.ServerAddress, &cfg.ServerAddress)
	override("BASE_URL", jsonCfg.BaseURL, &cfg.BaseURL)
	override("DATABASE_DSN", jsonCfg.DatabaseDSN, &cfg.DatabaseDSN)
	override("PG_MIGRATIONS_PATH", jsonCfg.PgMigrationsPath, &cfg.PgMigrationsPath)
	override("AUTH_SECRET", jsonCfg.AuthSecret, &cfg.AuthSecret)
	if jsonCfg.RateLimit > 0 && os.Getenv("RATE_LIMIT") == "" {
		cfg.RateLimit = jsonCfg.RateLimit
	}
	if jsonCfg.RateWindowSec > 0 && os.Getenv("RATE_WINDOW_SEC") == "" {
		cfg.RateWindowSec = jsonCfg.RateWindowSec
	}

	// Если флаг передан, но переменной окружения нет — используем флаг
	if *serverAddress != "" {
		cfg.ServerAddress = *serverAddress
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *databaseDSN != "" {
		cfg.DatabaseDSN = *databaseDSN
	}
	if *rateLimit > 0 {
		cfg.RateLimit = *rateLimit
	}
	if *rateWindow > 0 {
		cfg.RateWindowSec = *rateWindow
	}
	if *enforceLimit {
		cfg.EnforceRateLimit = true
	}

	// Определяем режим работы
	if cfg.DatabaseDSN != "" {
		cfg.Mode = "database"
	} else {
		cfg.Mode = "memory"
	}

	// Включаем TLS
	if *enableHTTPS {
		cfg.EnableHTTPS = true
	}
	if *tlsCertPath != "" {
		cfg.TLSCertPath = *tlsCertPath
	}
	if *tlsKeyPath != "" {
		cfg.TLSKeyPath = *tlsKeyPath
	}

	log.Printf("Инициализация конфигурации: ServerAddress=%s", cfg.ServerAddress)
	log.Printf("Инициализация конфигурации: BaseURL=%s", cfg.BaseURL)
	log.Printf("Инициализация конфигурации: Mode=%s", cfg.Mode)
	log.Printf("Инициализация конфигурации: RateLimit=%d/%ds enforce=%v",
		cfg.RateLimit, cfg.RateWindowSec, cfg.EnforceRateLimit)

	// Проверка корректности конфигурации
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Ошибка конфигурации: %v\n", err)
	}

	return cfg
}

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if cfg.ServerAddress == "" {
		return fmt.Errorf("адрес сервера не может быть пустым")
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("базовый URL не может быть пустым")
	}
	if cfg.RateLimit <= 0 || cfg.RateWindowSec <= 0 {
		return fmt.Errorf("параметры лимитера должны быть положительными")
	}
	if cfg.AliasLength <= 0 {
		return fmt.Errorf("длина алиаса должна быть положительной")
	}
	return nil
}
