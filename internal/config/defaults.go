package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/tubesort",
			SQLiteFile:        "tubesort.db",
			SQLiteJournalMode: "wal",
		},
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           7774,
			MaxRequestSize: 1 << 20,
		},
		Browser: BrowserConfig{
			CDPURL:         "http://127.0.0.1:9222",
			VideoHosts:     DefaultVideoHosts(),
			CommandDelayMS: 0,
		},
		Cache: CacheConfig{
			MaxAgeDays: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}
