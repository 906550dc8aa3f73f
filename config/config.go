package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zalepa/crashmap/crash"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

type Config struct {
	Env           string
	Port          int
	CycleInterval time.Duration

	Data     DataConfig
	Download DownloadConfig
	Log      LogConfig
}

// DataConfig locates the crash records and the area boundaries.
type DataConfig struct {
	CrashesPath    string
	BoundariesPath string
	// AreaProperty is the GeoJSON feature property holding the area name.
	AreaProperty string
	// AreaColumn is the crash record column listing the areas of a crash.
	AreaColumn string
}

// DownloadConfig is used by the download command.
type DownloadConfig struct {
	CrashesURL    string
	BoundariesURL string
	Timeout       time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads configuration from the environment, a .env file and the
// optional config file at path. Environment variables win over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENVIRONMENT")
	cfg.Port = v.GetInt("PORT")
	cfg.CycleInterval = parseDuration(v.GetString("CYCLE_INTERVAL"), time.Second)

	cfg.Data = DataConfig{
		CrashesPath:    v.GetString("CRASHES_PATH"),
		BoundariesPath: v.GetString("BOUNDARIES_PATH"),
		AreaProperty:   v.GetString("AREA_PROPERTY"),
		AreaColumn:     v.GetString("AREA_COLUMN"),
	}

	cfg.Download = DownloadConfig{
		CrashesURL:    v.GetString("CRASHES_URL"),
		BoundariesURL: v.GetString("BOUNDARIES_URL"),
		Timeout:       parseDuration(v.GetString("DOWNLOAD_TIMEOUT"), 2*time.Minute),
	}

	cfg.Log = LogConfig{
		Level: v.GetString("LOG_LEVEL"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", EnvLocal)
	v.SetDefault("PORT", 8080)
	v.SetDefault("CYCLE_INTERVAL", "1s")

	v.SetDefault("CRASHES_PATH", "data/crashes.csv")
	v.SetDefault("BOUNDARIES_PATH", "data/boundaries.geojson")
	v.SetDefault("AREA_PROPERTY", "LGA_name")
	v.SetDefault("AREA_COLUMN", crash.AreaColumn)

	v.SetDefault("CRASHES_URL", "")
	v.SetDefault("BOUNDARIES_URL", "")
	v.SetDefault("DOWNLOAD_TIMEOUT", "2m")

	v.SetDefault("LOG_LEVEL", "info")
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
