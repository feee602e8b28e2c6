package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "LEXSHARE_"

// Store drivers.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds all configuration settings for the application.
type Config struct {
	ConfigFile string `koanf:"config_file"`

	// Server settings
	ListenAddress string   `koanf:"listen_address"`
	ListenPort    string   `koanf:"listen_port"`
	CORSOrigins   []string `koanf:"cors_origins"`

	// Store settings
	StoreDriver  string        `koanf:"store_driver"`
	DbFilePath   string        `koanf:"db_file_path"`
	SaveInterval time.Duration `koanf:"save_interval"`
	EnableBackup bool          `koanf:"enable_backup"`

	PostgresDSN             string        `koanf:"postgres_dsn"`
	PostgresLogLevel        string        `koanf:"postgres_log_level"`
	PostgresMaxIdleConns    int           `koanf:"postgres_max_idle_conns"`
	PostgresMaxOpenConns    int           `koanf:"postgres_max_open_conns"`
	PostgresConnMaxLifetime time.Duration `koanf:"postgres_conn_max_lifetime"`

	// In-flight guard; an empty RedisAddr keeps it in memory.
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	InflightTTL   time.Duration `koanf:"inflight_ttl"`

	// Authentication settings
	JwtSecret     string        `koanf:"jwt_secret"`      // The actual secret key
	JwtSecretFile string        `koanf:"jwt_secret_file"` // Path to the file containing the secret
	TokenLifetime time.Duration `koanf:"token_lifetime"`
	BcryptCost    int           `koanf:"bcrypt_cost"`
	AdminEmails   []string      `koanf:"admin_emails"` // Accounts created with these e-mails are admins

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // json or console
}

const (
	defaultAddress       = "0.0.0.0"
	defaultPort          = "8080"
	defaultStoreDriver   = StoreFile
	defaultDbFile        = "./lexshare.json" // Relative to working dir
	defaultSaveInterval  = 3 * time.Second
	defaultEnableBackup  = true
	defaultJwtKeyFile    = "./lexshare.key" // Default file if we generate a key
	defaultTokenLifetime = 24 * time.Hour
	defaultBcryptCost    = 12
	defaultInflightTTL   = 30 * time.Second
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
)

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		ListenAddress:    defaultAddress,
		ListenPort:       defaultPort,
		CORSOrigins:      []string{"*"},
		StoreDriver:      defaultStoreDriver,
		DbFilePath:       defaultDbFile,
		SaveInterval:     defaultSaveInterval,
		EnableBackup:     defaultEnableBackup,
		PostgresLogLevel: "warn",
		InflightTTL:      defaultInflightTTL,
		TokenLifetime:    defaultTokenLifetime,
		BcryptCost:       defaultBcryptCost,
		LogLevel:         defaultLogLevel,
		LogFormat:        defaultLogFormat,
	}
}

// LoadConfig loads configuration using the process arguments.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom loads configuration from, lowest to highest precedence:
// defaults, the YAML file named by --config or LEXSHARE_CONFIG_FILE, a .env file
// in the working directory, LEXSHARE_* environment variables and the flags set in args.
func LoadConfigFrom(args []string) (*Config, error) {
	fs, flagKeys := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	k := koanf.New(".")

	configFile := os.Getenv(EnvPrefix + "CONFIG_FILE")
	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		configFile = f.Value.String()
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", configFile, err)
		}
	}

	// LEXSHARE_DB_FILE_PATH -> db_file_path
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Only flags given on the command line override the layers below them.
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := k.Set(key, f.Value.String()); err != nil && setErr == nil {
			setErr = err
		}
	})
	if setErr != nil {
		return nil, fmt.Errorf("failed to apply flags: %w", setErr)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.ConfigFile = configFile
	cfg.AdminEmails = normalizeList(cfg.AdminEmails, true)
	cfg.CORSOrigins = normalizeList(cfg.CORSOrigins, false)

	if cfg.SaveInterval < 0 {
		log.Warn().Dur("save_interval", cfg.SaveInterval).Msg("negative save interval, using default")
		cfg.SaveInterval = defaultSaveInterval
	}

	secretSource, err := resolveJwtSecret(cfg)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	logConfiguration(cfg, secretSource)
	return cfg, nil
}

// newFlagSet defines one flag per setting; flag names are the koanf keys with dashes.
func newFlagSet() (*flag.FlagSet, map[string]string) {
	fs := flag.NewFlagSet("lexshare", flag.ContinueOnError)
	keys := map[string]string{}
	str := func(name, key, usage string) {
		fs.String(name, "", usage+" (Env: "+EnvPrefix+strings.ToUpper(key)+")")
		keys[name] = key
	}

	fs.String("config", "", "Path to a YAML configuration file (Env: "+EnvPrefix+"CONFIG_FILE)")
	str("address", "listen_address", "Server listen address")
	str("port", "listen_port", "Server listen port")
	str("cors-origins", "cors_origins", "Comma-separated allowed CORS origins")
	str("store", "store_driver", "Store driver: file or postgres")
	str("db-file", "db_file_path", "Path to the JSON database file")
	str("save-interval", "save_interval", "Debounce interval for saving DB (e.g., 5s, 100ms)")
	fs.Bool("enable-backup", defaultEnableBackup, "Enable database backup (.bak file) before saving (Env: "+EnvPrefix+"ENABLE_BACKUP)")
	keys["enable-backup"] = "enable_backup"
	str("postgres-dsn", "postgres_dsn", "PostgreSQL connection string")
	str("redis-addr", "redis_addr", "Redis address for the in-flight guard")
	str("inflight-ttl", "inflight_ttl", "Expiry of in-flight request markers")
	str("jwt-secret-file", "jwt_secret_file", "Path to file containing JWT secret key")
	str("token-lifetime", "token_lifetime", "Lifetime of issued tokens")
	str("admin-emails", "admin_emails", "Comma-separated e-mails granted admin rights at signup")
	str("log-level", "log_level", "Log level: debug, info, warn, error")
	str("log-format", "log_format", "Log format: json or console")
	return fs, keys
}

// normalizeList splits comma-separated entries (env vars and flags arrive as one string)
// and drops blanks.
func normalizeList(items []string, lower bool) []string {
	out := make([]string, 0, len(items))
	for _, entry := range items {
		for _, item := range strings.Split(entry, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if lower {
				item = strings.ToLower(item)
			}
			out = append(out, item)
		}
	}
	return out
}

// resolveJwtSecret applies the secret priority:
// file (flag/env) > configured secret > default key file > generate and save.
func resolveJwtSecret(cfg *Config) (string, error) {
	// 1. Explicit file path
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			if secret := strings.TrimSpace(string(secretBytes)); secret != "" {
				cfg.JwtSecret = secret
				return fmt.Sprintf("File (%s)", cfg.JwtSecretFile), nil
			}
			log.Warn().Str("path", cfg.JwtSecretFile).Msg("JWT secret file is empty, ignoring")
		} else {
			log.Warn().Err(err).Str("path", cfg.JwtSecretFile).Msg("failed to read JWT secret file, checking other sources")
		}
	}

	// 2. Secret from environment or config file
	cfg.JwtSecret = strings.TrimSpace(cfg.JwtSecret)
	if cfg.JwtSecret != "" {
		return "Environment Variable (" + EnvPrefix + "JWT_SECRET)", nil
	}

	// 3. Default key file
	secretBytes, err := os.ReadFile(defaultJwtKeyFile)
	if err == nil {
		if secret := strings.TrimSpace(string(secretBytes)); secret != "" {
			cfg.JwtSecret = secret
			return fmt.Sprintf("Default Key File (%s)", defaultJwtKeyFile), nil
		}
		log.Warn().Str("path", defaultJwtKeyFile).Msg("default JWT key file is empty, generating a new secret")
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", defaultJwtKeyFile).Msg("failed to read default JWT key file, generating a new secret")
	}

	// 4. Generate and try to save
	newSecret, err := generateRandomKey(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	cfg.JwtSecret = newSecret
	if err := os.WriteFile(defaultJwtKeyFile, []byte(newSecret), 0600); err != nil {
		log.Warn().Err(err).Str("path", defaultJwtKeyFile).Msg("failed to save generated JWT secret, using it for this session only")
		return "Generated (In Memory)", nil
	}
	log.Info().Str("path", defaultJwtKeyFile).Msg("generated and saved new JWT secret")
	return fmt.Sprintf("Generated & Saved (%s)", defaultJwtKeyFile), nil
}

func validate(cfg *Config) error {
	switch cfg.StoreDriver {
	case StoreFile:
		absDbPath, err := filepath.Abs(cfg.DbFilePath)
		if err != nil {
			return fmt.Errorf("could not determine absolute path for db-file '%s': %w", cfg.DbFilePath, err)
		}
		cfg.DbFilePath = absDbPath
		if info, err := os.Stat(cfg.DbFilePath); err == nil && info.IsDir() {
			return fmt.Errorf("database path '%s' points to a directory, not a file", cfg.DbFilePath)
		}
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return errors.New("store driver 'postgres' requires a postgres DSN")
		}
	default:
		return fmt.Errorf("invalid store driver '%s', expected '%s' or '%s'", cfg.StoreDriver, StoreFile, StorePostgres)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range 4-31", cfg.BcryptCost)
	}
	if cfg.TokenLifetime <= 0 {
		return fmt.Errorf("token lifetime must be positive, got %s", cfg.TokenLifetime)
	}
	return nil
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	log.Info().
		Str("address", cfg.ListenAddress).
		Str("port", cfg.ListenPort).
		Str("store", cfg.StoreDriver).
		Str("db_file", cfg.DbFilePath).
		Dur("save_interval", cfg.SaveInterval).
		Bool("backup", cfg.EnableBackup).
		Bool("redis_guard", cfg.RedisAddr != "").
		Str("jwt_secret_source", secretSource).
		Dur("token_lifetime", cfg.TokenLifetime).
		Int("bcrypt_cost", cfg.BcryptCost).
		Int("admin_emails", len(cfg.AdminEmails)).
		Msg("configuration loaded")
}

// generateRandomKey generates a cryptographically secure random key of the specified byte length
// and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// IsAdminEmail reports whether email is listed in AdminEmails.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}
