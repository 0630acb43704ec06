// Package applog provides the two logging idioms used across this
// repository: a conditional component logger for local-node components
// (modeled on the teacher's clog package) and a structured zap logger
// for the institutional server and broker request paths.
package applog

import (
	"fmt"
	"log"
	"os"
)

var componentLoggingEnabled = false

// EnableComponentLogging turns on conditional output for all Component
// loggers. Off by default; the node CLI flips it with -l.
func EnableComponentLogging() {
	componentLoggingEnabled = true
}

// Component is a prefixed logger for a single long-running subsystem
// (job queue, streaming controller, presence registry). Debug output is
// conditional; errors always print.
type Component struct {
	logger *log.Logger
}

// NewComponent creates a conditional logger with the given prefix.
func NewComponent(prefixFormat string, prefixArgs ...any) *Component {
	return &Component{
		logger: log.New(
			os.Stderr,
			fmt.Sprintf(prefixFormat, prefixArgs...),
			log.Ldate|log.Ltime|log.Lmicroseconds|log.Lmsgprefix,
		),
	}
}

// Debugf logs conditionally (only if EnableComponentLogging was called).
func (c *Component) Debugf(format string, a ...any) {
	if !componentLoggingEnabled {
		return
	}
	c.logger.Printf(format, a...)
}

// Errorf logs unconditionally.
func (c *Component) Errorf(format string, a ...any) {
	c.logger.Printf(format, a...)
}
