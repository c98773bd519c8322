package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateSingleIssue(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }, "backend.baseUrl"},
		{"ftp base url", func(c *Config) { c.Backend.BaseURL = "ftp://example.com" }, "backend.baseUrl"},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSeconds = -1 }, "backend.timeoutSeconds"},
		{"too many retries", func(c *Config) { c.Backend.Retries = 11 }, "backend.retries"},
		{"negative retries", func(c *Config) { c.Backend.Retries = -1 }, "backend.retries"},
		{"bad storage driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"port too high", func(c *Config) { c.Server.Port = 99999 }, "server.port"},
		{"bad bind", func(c *Config) { c.Server.Bind = "everywhere" }, "server.bind"},
		{"bad server store", func(c *Config) { c.Server.Store = "postgres" }, "server.store"},
		{"tls without cert", func(c *Config) { c.Server.TLS.Enabled = true }, "server.tls"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad console style", func(c *Config) { c.Logging.ConsoleStyle = "fancy" }, "logging.consoleStyle"},
		{"empty hook command", func(c *Config) {
			c.Hooks.SendFailed = []HookEntry{{Command: ""}}
		}, "hooks.sendFailed[0].command"},
		{"negative hook timeout", func(c *Config) {
			c.Hooks.ServerStart = []HookEntry{{Command: "true"}, {Command: "true", Timeout: -5}}
		}, "hooks.serverStart[1].timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.path, issues[0].Path)
		})
	}
}

func TestValidateEmptyFieldsAccepted(t *testing.T) {
	var cfg Config
	assert.Empty(t, Validate(&cfg))
}

func TestValidateTLSComplete(t *testing.T) {
	cfg := Defaults()
	cfg.Server.TLS = ServerTLS{Enabled: true, CertPath: "/etc/cert.pem", KeyPath: "/etc/key.pem"}
	assert.Empty(t, Validate(&cfg))
}

func TestValidateMultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	cfg.Logging.Level = "loud"
	cfg.Hooks.MessageSent = []HookEntry{{}}

	issues := Validate(&cfg)
	require.Len(t, issues, 3)

	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Contains(t, paths, "server.port")
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "hooks.messageSent[0].command")
}

func TestValidationIssueString(t *testing.T) {
	v := ValidationIssue{Path: "server.port", Message: "bad"}
	assert.Equal(t, "server.port: bad", v.String())
}
