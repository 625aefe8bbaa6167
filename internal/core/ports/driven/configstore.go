package driven

// ConfigStore holds settings under dotted keys such as "harvest.page_size".
// Stores may be layered: the environment store reads through to a file
// store and writes to it.
type ConfigStore interface {
	// Get returns the raw stored value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns the value as a string, "" when unset.
	GetString(key string) string

	// GetInt returns the value as an int, 0 when unset or unparseable.
	GetInt(key string) int

	// GetBool returns the value as a bool, false when unset or unparseable.
	GetBool(key string) bool

	// GetStringSlice returns a list value, nil when unset.
	GetStringSlice(key string) []string

	// Set stores value under key and persists it.
	Set(key string, value any) error

	// Save writes the current values to the backing file, if any.
	Save() error

	// Load rereads the backing file, if any.
	Load() error

	// Path describes where values are persisted.
	Path() string
}
