package assets

import (
	"code.zenithprotocol.io/zenith/config/encoding"
	"code.zenithprotocol.io/zenith/logging"
)

const (
	// namedLogger is the identifier for package and should ideally match the package name
	// this is simply emitted as a hierarchical label e.g. 'core.assets'.
	namedLogger = "assets"
)

// Config is the configuration of the assets package.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
