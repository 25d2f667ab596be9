package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress    string        `mapstructure:"SERVER_ADDRESS"`
	DBSource         string        `mapstructure:"DB_SOURCE"`
	CacheEnabled     bool          `mapstructure:"CACHE_ENABLED"`
	GeocoderProvider string        `mapstructure:"GEOCODER_PROVIDER"`
	NominatimURL     string        `mapstructure:"NOMINATIM_URL"`
	GoogleMapsAPIKey string        `mapstructure:"GOOGLE_MAPS_API_KEY"`
	UserAgent        string        `mapstructure:"USER_AGENT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MapZoom          int           `mapstructure:"MAP_ZOOM"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES"`
}

// LoadConfig reads app.env from path and overlays environment variables.
// A missing file is not an error; the defaults and the environment still apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("GEOCODER_PROVIDER", ProviderNominatim)
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GOOGLE_MAPS_API_KEY", "")
	v.SetDefault("USER_AGENT", "address-mapper")
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("MAP_ZOOM", 6)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)

	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: read file: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err = config.validate(); err != nil {
		return config, err
	}

	return config, nil
}

func (c Config) validate() error {
	switch c.GeocoderProvider {
	case ProviderNominatim:
		if c.NominatimURL == "" {
			return fmt.Errorf("config: NOMINATIM_URL is required for the nominatim provider")
		}
	case ProviderGoogle:
		if c.GoogleMapsAPIKey == "" {
			return fmt.Errorf("config: GOOGLE_MAPS_API_KEY is required for the google provider")
		}
	default:
		return fmt.Errorf("config: unknown geocoder provider %q", c.GeocoderProvider)
	}

	if c.CacheEnabled && c.DBSource == "" {
		return fmt.Errorf("config: DB_SOURCE is required when CACHE_ENABLED is set")
	}

	if c.MapZoom < 0 {
		return fmt.Errorf("config: invalid map zoom: %d", c.MapZoom)
	}

	return nil
}
