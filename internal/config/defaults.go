package config

const (
	defaultSerialPort = "/dev/ttyUSB0"

	// The MDS-E12 remote port is fixed at 9600/8/N/1; baud stays
	// configurable for decks with other factory settings.
	defaultBaud = 9600

	// The deck is slow: it needs around half a second to answer most
	// commands and up to three seconds for track-name reads.
	defaultCommandTimeoutSeconds = 4

	defaultArmRetries    = 3
	defaultStartRetries  = 1
	defaultStopRetries   = 3
	defaultStatusRetries = 3

	defaultPrerollMs  = 5000
	defaultPostrollMs = 2000

	defaultPollIntervalMs         = 250
	defaultCompletionSlackSeconds = 5
	defaultStopGraceMs            = 3000

	defaultLockDir   = "~/.local/share/deckhand"
	defaultCachePath = "~/.local/share/deckhand/disccache.db"
	defaultLogDir    = "~/.local/share/deckhand/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Serial: Serial{
			Port: defaultSerialPort,
			Baud: defaultBaud,
		},
		Deck: Deck{
			CommandTimeoutSeconds: defaultCommandTimeoutSeconds,
			ArmRetries:            defaultArmRetries,
			StartRetries:          defaultStartRetries,
			StopRetries:           defaultStopRetries,
			StatusRetries:         defaultStatusRetries,
			PrerollMs:             defaultPrerollMs,
			PostrollMs:            defaultPostrollMs,
		},
		Playback: Playback{
			PollIntervalMs:         defaultPollIntervalMs,
			CompletionSlackSeconds: defaultCompletionSlackSeconds,
			StopGraceMs:            defaultStopGraceMs,
		},
		Session: Session{
			FailurePolicy: PolicyAbort,
			LockDir:       defaultLockDir,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Dir:    defaultLogDir,
		},
	}
}
