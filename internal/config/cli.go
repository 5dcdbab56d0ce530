package config

// CLIFlags are command-line overrides. Zero values leave the loaded
// configuration untouched.
type CLIFlags struct {
	ConfigFile string
	Port       string
	LogLevel   string
	StreamMode string
	Agents     []string
}

// ApplyCLI overlays non-empty flags onto cfg. A nil flags is a no-op.
func ApplyCLI(cfg *Config, flags *CLIFlags) {
	if flags == nil {
		return
	}
	if flags.Port != "" {
		cfg.Server.Port = flags.Port
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.StreamMode != "" {
		cfg.Stream.Mode = flags.StreamMode
	}
	if len(flags.Agents) > 0 {
		cfg.Server.Mounted = flags.Agents
	}
}
