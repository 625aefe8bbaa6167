// Package file stores settings in <configDir>/config.toml.
// The env package layers environment variables over this store.
package file
