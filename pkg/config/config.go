package config

type Config interface {
	AllowNonRootAccess() bool
	Namespace() string
	DisabledAttributes() []string

	SetAllowNonRootAccess(bool)
	SetNamespace(string)
	SetDisabledAttributes([]string)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
