package chanstore

import (
	"github.com/breez/lnrouter/build"
	"github.com/btcsuite/btclog"
)

// log is the package-level logger used throughout chanstore. It starts
// out disabled; callers wire up a real backend via UseLogger.
var log btclog.Logger = build.NewSubLogger("CHDB", nil)

// UseLogger sets the package-wide logger used by the chanstore package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
