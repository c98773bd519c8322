package config

// Config is the root configuration for creatorpilot.
type Config struct {
	Backend BackendConfig `yaml:"backend,omitempty"`
	Chat    ChatConfig    `yaml:"chat,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Hooks   HooksConfig   `yaml:"hooks,omitempty"`
}

// BackendConfig points the client at the campaign backend.
type BackendConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`
	Token          string `yaml:"token,omitempty"` // bearer token, supports ${ENV}
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	Retries        int    `yaml:"retries,omitempty"` // GET/DELETE only
}

// ChatConfig controls the assistant transcript.
type ChatConfig struct {
	Greeting   string `yaml:"greeting,omitempty"`
	StorageKey string `yaml:"storageKey,omitempty"`
	Width      int    `yaml:"width,omitempty"` // terminal render width
}

// StorageConfig selects where the active conversation id is persisted.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`   // defaults to <data>/creatorpilot.db
}

// ServerConfig configures the reference backend.
type ServerConfig struct {
	Port           int       `yaml:"port,omitempty"`
	Bind           string    `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string    `yaml:"customBindHost,omitempty"`
	Token          string    `yaml:"token,omitempty"`
	AllowedOrigins []string  `yaml:"allowedOrigins,omitempty"`
	Store          string    `yaml:"store,omitempty"` // "sqlite" | "memory"
	TLS            ServerTLS `yaml:"tls,omitempty"`
}

// ServerTLS configures TLS for the reference backend.
type ServerTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// HooksConfig defines shell commands run on lifecycle events.
type HooksConfig struct {
	MessageSent         []HookEntry `yaml:"messageSent,omitempty"`
	SendFailed          []HookEntry `yaml:"sendFailed,omitempty"`
	ConversationAdopted []HookEntry `yaml:"conversationAdopted,omitempty"`
	ConversationCleared []HookEntry `yaml:"conversationCleared,omitempty"`
	ServerStart         []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop          []HookEntry `yaml:"serverStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
