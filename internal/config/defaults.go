package config

const (
	defaultBaseDir              = "~/aesrc"
	defaultFeaturesRoot         = "~/aesrc/features"
	defaultTimesRoot            = "~/aesrc/times"
	defaultStateDir             = "~/.local/share/accentabx"
	defaultConverterBinary      = "fastabx-convert"
	defaultConverterModeToken   = "torch"
	defaultHistoryFileName      = "history.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultConverterTimeoutSecs = 0
)

// DefaultAccents is the AESRC development-set accent list processed when the
// configuration does not override it.
var DefaultAccents = []string{
	"American",
	"British",
	"Indian",
	"Chinese",
	"Japanese",
	"Korean",
	"Russian",
	"Spanish",
	"Portuguese",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:      defaultBaseDir,
			FeaturesRoot: defaultFeaturesRoot,
			TimesRoot:    defaultTimesRoot,
			StateDir:     defaultStateDir,
		},
		Categories: Categories{
			Accents: append([]string(nil), DefaultAccents...),
		},
		Converter: Converter{
			Binary:         defaultConverterBinary,
			ModeToken:      defaultConverterModeToken,
			TimeoutSeconds: defaultConverterTimeoutSecs,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
