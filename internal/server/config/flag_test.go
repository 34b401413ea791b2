package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		name     string
		args     []string
		expected func() *Config
		wantErr  bool
	}{
		{
			name: "all supported flags",
			args: []string{"-a", "127.0.0.1:9090", "-g", ":6000", "-d", "sqlite://identity.db", "-l", "debug", "-t", "24"},
			expected: func() *Config {
				c := base()
				c.HTTPAddr = "127.0.0.1:9090"
				c.GRPCAddr = ":6000"
				c.DatabaseDSN = "sqlite://identity.db"
				c.LogLevel = "debug"
				c.SessionTokenTTL = 24 * time.Hour
				return c
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-s", "secret", "-x"},
			expected: base,
		},
		{
			name:    "bad int",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), cfg))
		})
	}
}
