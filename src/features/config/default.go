package config

// createDefaultConfig creates a new Config with sensible default values.
func createDefaultConfig() *Config {
	return &Config{
		Watch: Watch{
			Directories: []DirectoryConfig{},
			Simple: Simple{
				Directories:     []string{"./watch"},
				Owner:           "admin",
				DebounceSeconds: 5,
				Extensions:      []string{},
				ProcessedDir:    "",
			},
		},
		Import: Import{
			DebounceSeconds: 5,
			ScanSeconds:     30,
			MaxFileSize:     4 * 1024 * 1024 * 1024, // 4GB
			MaxRetries:      3,
			Parallelism:     2,
			DedupScope:      "global",
		},
		Sink: Sink{
			URL:            "http://localhost",
			Token:          "", // Or set MEDIACMS_SINK_TOKEN
			TimeoutSeconds: 120,
		},
		Ledger: Ledger{
			Path: "./imports.db",
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			Enabled:     false,
			PrintRoutes: false,
			Port:        3636,
		},
		Telegram: Telegram{
			Enabled: false,
			Token:   "", // Can be obtained with https://t.me/BotFather
			ChatID:  0,
		},
	}
}
