package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Backend validation
	if cfg.Backend.BaseURL != "" {
		u, err := url.Parse(cfg.Backend.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			issues = append(issues, ValidationIssue{
				Path:    "backend.baseUrl",
				Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.Backend.BaseURL),
			})
		}
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.timeoutSeconds",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Backend.TimeoutSeconds),
		})
	}
	if cfg.Backend.Retries < 0 || cfg.Backend.Retries > 10 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.retries",
			Message: fmt.Sprintf("must be 0-10, got %d", cfg.Backend.Retries),
		})
	}

	// Storage validation
	validDrivers := []string{"sqlite", "memory"}
	if cfg.Storage.Driver != "" && !slices.Contains(validDrivers, cfg.Storage.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "storage.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Storage.Driver),
		})
	}

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	if cfg.Server.Store != "" && !slices.Contains(validDrivers, cfg.Server.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "server.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Server.Store),
		})
	}

	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertPath == "" || cfg.Server.TLS.KeyPath == "") {
		issues = append(issues, ValidationIssue{
			Path:    "server.tls",
			Message: "certPath and keyPath are required when TLS is enabled",
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Hooks validation
	hookGroups := map[string][]HookEntry{
		"hooks.messageSent":         cfg.Hooks.MessageSent,
		"hooks.sendFailed":          cfg.Hooks.SendFailed,
		"hooks.conversationAdopted": cfg.Hooks.ConversationAdopted,
		"hooks.conversationCleared": cfg.Hooks.ConversationCleared,
		"hooks.serverStart":         cfg.Hooks.ServerStart,
		"hooks.serverStop":          cfg.Hooks.ServerStop,
	}
	for _, path := range slices.Sorted(maps.Keys(hookGroups)) {
		for i, h := range hookGroups[path] {
			if h.Command == "" {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("%s[%d].command", path, i),
					Message: "command is required",
				})
			}
			if h.Timeout < 0 {
				issues = append(issues, ValidationIssue{
					Path:    fmt.Sprintf("%s[%d].timeout", path, i),
					Message: fmt.Sprintf("must be >= 0, got %d", h.Timeout),
				})
			}
		}
	}

	return issues
}
