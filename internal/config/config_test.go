package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, 17, cfg.DayEndHour)
	assert.Equal(t, 3, cfg.GracePeriodSeconds)
	assert.Equal(t, 30, cfg.QueryTimeoutSeconds)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_ADDR", ":8080")
	t.Setenv("DAY_END_HOUR", "18")
	t.Setenv("GRACE_PERIOD_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 18, cfg.DayEndHour)
	assert.Equal(t, 0, cfg.GracePeriodSeconds)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "complete config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.GoogleClientID = "" },
			wantErr: true,
		},
		{
			name:    "missing host email",
			mutate:  func(c *Config) { c.HostEmail = "" },
			wantErr: true,
		},
		{
			name:    "day end hour out of range",
			mutate:  func(c *Config) { c.DayEndHour = 25 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				GoogleClientID:     "id",
				GoogleClientSecret: "secret",
				HostEmail:          "host@example.com",
				DayEndHour:         17,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := &Config{
		BaseURL:   "https://meet.example.com",
		HostEmail: "host@example.com",
	}

	assert.Equal(t, "https://meet.example.com/login/google/authorized", cfg.RedirectURL())
	assert.Equal(t, "host@example.com", cfg.HostCalendar())

	cfg.HostCalendarID = "team-calendar@group.calendar.google.com"
	assert.Equal(t, "team-calendar@group.calendar.google.com", cfg.HostCalendar())
}
