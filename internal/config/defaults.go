package config

const (
	defaultDataDir        = "~/.local/share/remsync"
	defaultLogDir         = "~/.local/share/remsync/logs"
	defaultDeviceAddress  = "10.11.99.1"
	defaultDeviceModel    = "paper-pro"
	defaultFormat         = "pdf"
	defaultPollSeconds    = 5
	defaultListingTimeout = 10
	defaultUploadTimeout  = 120
	defaultProbeTimeout   = 2
	defaultConvertTimeout = 300
	defaultLogLevel       = "info"
	// Empty format defers the console/json choice to the caller, which
	// picks by terminal.
	defaultLogFormat     = ""
	defaultEmbedAllFonts = true
	defaultInjectCover   = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DataDir: defaultDataDir,
		Device: Device{
			Address:         defaultDeviceAddress,
			Model:           defaultDeviceModel,
			PreferredFormat: defaultFormat,
			InjectCover:     defaultInjectCover,
			PollSeconds:     defaultPollSeconds,
		},
		Conversion: Conversion{
			EmbedAllFonts:  defaultEmbedAllFonts,
			TimeoutSeconds: defaultConvertTimeout,
		},
		Transport: Transport{
			ListingTimeoutSeconds: defaultListingTimeout,
			UploadTimeoutSeconds:  defaultUploadTimeout,
			ProbeTimeoutSeconds:   defaultProbeTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Dir:    defaultLogDir,
		},
	}
}
