package config

import (
	"os"
	"path/filepath"

	"github.com/arencloud/strata/internal/errs"

	"github.com/spf13/viper"
)

const appName = "strata"

type Config struct {
	Env      string
	HttpPort string
	// ConfigDir holds connections.json and the default sqlite file.
	ConfigDir string
	// StoreDriver picks connection persistence: json|sqlite|postgres.
	StoreDriver string
	DBPath      string // used when StoreDriver=sqlite
	DBDsn       string // used when StoreDriver=postgres (e.g., DATABASE_URL)

	LogLevel string
	LogJSON  bool

	KeyringService string

	MaxUploadBytes      int64 // 0 means unlimited
	TextPreviewMaxBytes int64

	// TransferDir confines local file upload/download paths; empty disables them.
	TransferDir string
}

func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, appName)
}

// Load reads the environment. Unset variables fall back to defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("CONFIG_DIR", defaultConfigDir())
	v.SetDefault("STORE_DRIVER", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", true)
	v.SetDefault("KEYRING_SERVICE", "dev.arencloud.strata")
	v.SetDefault("MAX_UPLOAD_BYTES", 0)
	v.SetDefault("TEXT_PREVIEW_MAX_BYTES", 1<<20)
	v.SetDefault("TRANSFER_DIR", "")

	dir := v.GetString("CONFIG_DIR")
	v.SetDefault("DB_PATH", filepath.Join(dir, appName+".db"))

	dsn := v.GetString("DATABASE_URL")
	if dsn == "" {
		dsn = v.GetString("DB_DSN")
	}

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		HttpPort:            v.GetString("HTTP_PORT"),
		ConfigDir:           dir,
		StoreDriver:         v.GetString("STORE_DRIVER"),
		DBPath:              v.GetString("DB_PATH"),
		DBDsn:               dsn,
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogJSON:             v.GetBool("LOG_JSON"),
		KeyringService:      v.GetString("KEYRING_SERVICE"),
		MaxUploadBytes:      v.GetInt64("MAX_UPLOAD_BYTES"),
		TextPreviewMaxBytes: v.GetInt64("TEXT_PREVIEW_MAX_BYTES"),
		TransferDir:         v.GetString("TRANSFER_DIR"),
	}
}

// EnsureConfigDir creates the config directory if needed.
func (c *Config) EnsureConfigDir() error {
	if err := os.MkdirAll(c.ConfigDir, 0o755); err != nil {
		return errs.Config("cannot create config directory "+c.ConfigDir, err)
	}
	return nil
}

// ConnectionsFile is where the JSON store keeps connection records.
func (c *Config) ConnectionsFile() string {
	return filepath.Join(c.ConfigDir, "connections.json")
}
