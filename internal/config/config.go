package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultGreeting seeds an empty transcript.
const DefaultGreeting = "Hi! I'm your campaign assistant. I can find creators, set up campaigns, " +
	"and run outreach for you. What would you like to work on?"

// DefaultStorageKey is the key holding the active conversation id.
const DefaultStorageKey = "agentic_chat_conversation_id"

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:18790",
			TimeoutSeconds: 60,
			Retries:        2,
		},
		Chat: ChatConfig{
			Greeting:   DefaultGreeting,
			StorageKey: DefaultStorageKey,
			Width:      100,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Port:  18790,
			Bind:  "loopback",
			Store: "memory",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
