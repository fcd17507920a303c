package tool

import (
	"github.com/charmbracelet/log"
)

var DefaultLogger = log.Default()

// InitLogger configures the default logger. Debug mode enables caller
// reporting so event traces point at the code that produced them.
func InitLogger(debug bool) {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	if debug {
		DefaultLogger.SetLevel(log.DebugLevel)
		DefaultLogger.SetReportCaller(true)
	} else {
		DefaultLogger.SetLevel(log.InfoLevel)
	}
}
