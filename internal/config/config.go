package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the scheduler service.
type Config struct {
	Addr    string `mapstructure:"SCHEDULER_ADDR"`
	BaseURL string `mapstructure:"SCHEDULER_BASE_URL"`
	Env     string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Google OAuth client used for guest authentication.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`

	// Host identity. Availability queries and bookings run against the
	// host's calendar with the host's credentials.
	HostEmail        string `mapstructure:"HOST_EMAIL"`
	HostCalendarID   string `mapstructure:"HOST_CALENDAR_ID"`
	HostRefreshToken string `mapstructure:"HOST_REFRESH_TOKEN"`

	// Scheduling knobs.
	DayEndHour            int `mapstructure:"DAY_END_HOUR"`
	GracePeriodSeconds    int `mapstructure:"GRACE_PERIOD_SECONDS"`
	QueryTimeoutSeconds   int `mapstructure:"QUERY_TIMEOUT_SECONDS"`
	SessionTimeoutMinutes int `mapstructure:"SESSION_TIMEOUT_MINUTES"`

	// Metrics server.
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	MetricsAddr    string `mapstructure:"METRICS_ADDR"`
}

// Load reads configuration from an optional config.yaml plus the
// environment. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables carry the load.
	}

	// AutomaticEnv alone does not populate Unmarshal for keys that were
	// never set, so bind each key explicitly.
	for _, key := range []string{
		"SCHEDULER_ADDR", "SCHEDULER_BASE_URL", "ENV", "LOG_LEVEL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
		"HOST_EMAIL", "HOST_CALENDAR_ID", "HOST_REFRESH_TOKEN",
		"DAY_END_HOUR", "GRACE_PERIOD_SECONDS", "QUERY_TIMEOUT_SECONDS",
		"SESSION_TIMEOUT_MINUTES", "METRICS_ENABLED", "METRICS_ADDR",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SCHEDULER_ADDR", ":5000")
	v.SetDefault("SCHEDULER_BASE_URL", "http://localhost:5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DAY_END_HOUR", 17)
	v.SetDefault("GRACE_PERIOD_SECONDS", 3)
	v.SetDefault("QUERY_TIMEOUT_SECONDS", 30)
	v.SetDefault("SESSION_TIMEOUT_MINUTES", 60)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_ADDR", ":9090")
}

// Validate checks that the settings required to talk to the provider are
// present.
func (c *Config) Validate() error {
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	if c.HostEmail == "" {
		return fmt.Errorf("HOST_EMAIL is required")
	}
	if c.DayEndHour < 1 || c.DayEndHour > 23 {
		return fmt.Errorf("DAY_END_HOUR must be between 1 and 23, got %d", c.DayEndHour)
	}
	return nil
}

// RedirectURL is the OAuth callback the provider sends the guest back to.
func (c *Config) RedirectURL() string {
	return c.BaseURL + "/login/google/authorized"
}

// HostCalendar returns the calendar the bookings land on, defaulting to the
// host's own address.
func (c *Config) HostCalendar() string {
	if c.HostCalendarID != "" {
		return c.HostCalendarID
	}
	return c.HostEmail
}

// GracePeriod returns the post-auth settle delay as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// QueryTimeout returns the per-provider-call timeout as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// SessionTimeout returns the idle session expiry as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
