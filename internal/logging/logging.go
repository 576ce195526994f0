// Package logging sets up the proxy's op/go-logging backend and renders
// message lines in a wire-exact, fixed format.
package logging

import (
	stdlog "log"
	"log/syslog"
	"os"

	"github.com/keybase/saltpack/encoding/basex"
	"github.com/op/go-logging"
)

var syslogFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)
var stderrFormat = logging.MustStringFormatter(
	`%{color}wlmux ▶ %{message}%{color:reset}`,
)

// Setup wires a *logging.Logger: syslog when requested and available,
// otherwise colorized stderr, with the level controllable via
// WLMUX_LOG_LEVEL.
func Setup(prefix string, defaultLevel logging.Level, trySyslog bool) *logging.Logger {
	log := logging.MustGetLogger(prefix)

	var backend logging.Backend
	if trySyslog {
		var err error
		backend, err = logging.NewSyslogBackendPriority(prefix, syslog.LOG_NOTICE)
		if err == nil {
			logging.SetFormatter(syslogFormat)
			if syslogBackend, ok := backend.(*logging.SyslogBackend); ok {
				stdlog.SetOutput(syslogBackend.Writer)
			}
		} else {
			backend = nil
		}
	}
	if backend == nil {
		backend = logging.NewLogBackend(os.Stderr, prefix, 0)
		logging.SetFormatter(stderrFormat)
	}

	leveled := logging.AddModuleLevel(backend)
	switch os.Getenv("WLMUX_LOG_LEVEL") {
	case "CRITICAL":
		leveled.SetLevel(logging.CRITICAL, prefix)
	case "ERROR":
		leveled.SetLevel(logging.ERROR, prefix)
	case "WARNING":
		leveled.SetLevel(logging.WARNING, prefix)
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, prefix)
	case "INFO":
		leveled.SetLevel(logging.INFO, prefix)
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, prefix)
	default:
		leveled.SetLevel(defaultLevel, prefix)
	}

	logging.SetBackend(leveled)
	return log
}

// Token renders a short, stable base62 label for a connection pair, used
// as the bracketed prefix segment on every line that endpoint emits.
// basex.Base62StdEncoding is reused here for short connection
// correlation labels rather than its original role encoding signature
// hashes.
func Token(seed []byte) string {
	return basex.Base62StdEncoding.EncodeToString(seed)[:8]
}
