package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:9200/api/v1"
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	if cfg.Search.DebounceMillis == 0 {
		cfg.Search.DebounceMillis = 300
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 256
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 60
	}
	if cfg.Profiles.Directory == "" {
		cfg.Profiles.Directory = "/usr/local/var/kensaku/profiles"
	}
	if cfg.Profiles.Default == "" {
		cfg.Profiles.Default = "default"
	}
	if cfg.Analytics.DatabasePath == "" {
		cfg.Analytics.DatabasePath = "/usr/local/var/kensaku/data/analytics.db"
	}
}
