package ledger

import (
	"code.zenithprotocol.io/zenith/config/encoding"
	"code.zenithprotocol.io/zenith/logging"
)

const (
	// namedLogger is the identifier for package and should ideally match the package name
	// this is simply emitted as a hierarchical label e.g. 'core.ledger'.
	namedLogger = "ledger"
)

// Config is the configuration of the ledger package.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// LogMarginCallsDebug emits a debug line for every margin-call fill
	// executed by the sweep.
	LogMarginCallsDebug bool `long:"log-margin-calls-debug"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
