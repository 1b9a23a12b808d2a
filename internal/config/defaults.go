package config

const (
	defaultStateDir               = "~/.local/share/fetchd"
	defaultDownloadDir            = "~/.local/share/fetchd/downloads"
	defaultLogDir                 = "~/.local/share/fetchd/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultMaxItems               = 1000
	defaultMaxTerminalItems       = 100
	defaultMaxRetries             = 3
	defaultCleanupAgeHours        = 24
	defaultBackupIntervalSeconds  = 300
	defaultPollIntervalSeconds    = 5
	defaultCleanupIntervalSeconds = 3600
	defaultJobTimeoutSeconds      = 1800
	defaultTelegramAPIBaseURL     = "https://api.telegram.org"
	defaultTelegramTimeoutSeconds = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Queue: Queue{
			MaxItems:              defaultMaxItems,
			MaxTerminalItems:      defaultMaxTerminalItems,
			DefaultMaxRetries:     defaultMaxRetries,
			CleanupAgeHours:       defaultCleanupAgeHours,
			BackupIntervalSeconds: defaultBackupIntervalSeconds,
		},
		Worker: Worker{
			PollIntervalSeconds:    defaultPollIntervalSeconds,
			CleanupIntervalSeconds: defaultCleanupIntervalSeconds,
			JobTimeoutSeconds:      defaultJobTimeoutSeconds,
		},
		Telegram: Telegram{
			APIBaseURL:            defaultTelegramAPIBaseURL,
			RequestTimeoutSeconds: defaultTelegramTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
