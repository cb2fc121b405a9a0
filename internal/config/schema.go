package config

// Config is the top-level YAML/TOML structure.
type Config struct {
	Version string     `yaml:"version" toml:"version"`
	Input   InputConf  `yaml:"input" toml:"input"`
	Server  ServerConf `yaml:"server" toml:"server"`
	Engine  EngineConf `yaml:"engine" toml:"engine"`
	Log     LogConf    `yaml:"log" toml:"log"`
}

// InputConf locates the node lines the service keeps loaded.
type InputConf struct {
	Path             string `yaml:"path" toml:"path"`
	StrictDuplicates bool   `yaml:"strict_duplicates" toml:"strict_duplicates"`
	Watch            bool   `yaml:"watch" toml:"watch"` // reload when the file changes
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr           string `yaml:"addr" toml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms" toml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms" toml:"write_timeout_ms"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers      int `yaml:"workers" toml:"workers"`
	QueueDepth   int `yaml:"queue_depth" toml:"queue_depth"`
	JobTimeoutMs int `yaml:"job_timeout_ms" toml:"job_timeout_ms"`
}

// LogConf selects the slog handler.
type LogConf struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// Default returns a Config with every default applied and no input path.
func Default() *Config {
	cfg := &Config{Version: "v1"}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeoutMs == 0 {
		cfg.Server.ReadTimeoutMs = 10000
	}
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = 30000
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 4
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 256
	}
	if cfg.Engine.JobTimeoutMs == 0 {
		cfg.Engine.JobTimeoutMs = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
