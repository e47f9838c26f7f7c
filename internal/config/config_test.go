package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizplay/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Prefix string
	}

	Session struct {
		RetainCompleted time.Duration
	}
}

func defaults() testConfig {
	var c testConfig
	c.HTTP.Port = 8080
	c.Redis.Prefix = "local"
	c.Session.RetainCompleted = 10 * time.Minute
	return c
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		arrange func(t *testing.T) string
		assert  func(t *testing.T, c testConfig, err error)
	}{
		"should keep defaults without a file": {
			arrange: func(t *testing.T) string { return "" },
			assert: func(t *testing.T, c testConfig, err error) {
				require.NoError(t, err)
				assert.Equal(t, int32(8080), c.HTTP.Port)
				assert.Equal(t, "local", c.Redis.Prefix)
				assert.Empty(t, c.Redis.Addrs)
				assert.Equal(t, 10*time.Minute, c.Session.RetainCompleted)
			},
		},

		"should read values from the file": {
			arrange: func(t *testing.T) string {
				return writeFile(t, `
http:
  port: 9090
redis:
  addrs: [localhost:6379]
session:
  retaincompleted: 30s
`)
			},
			assert: func(t *testing.T, c testConfig, err error) {
				require.NoError(t, err)
				assert.Equal(t, int32(9090), c.HTTP.Port)
				assert.Equal(t, []string{"localhost:6379"}, c.Redis.Addrs)
				assert.Equal(t, "local", c.Redis.Prefix, "unset keys keep their default")
				assert.Equal(t, 30*time.Second, c.Session.RetainCompleted)
			},
		},

		"should let the environment override the file": {
			arrange: func(t *testing.T) string {
				t.Setenv("HTTP_PORT", "7070")
				return writeFile(t, "http:\n  port: 9090\n")
			},
			assert: func(t *testing.T, c testConfig, err error) {
				require.NoError(t, err)
				assert.Equal(t, int32(7070), c.HTTP.Port)
			},
		},

		"should fail on a missing file": {
			arrange: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			assert: func(t *testing.T, _ testConfig, err error) {
				require.Error(t, err)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := defaults()
			err := config.Load(tt.arrange(t), &c)
			tt.assert(t, c, err)
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}
