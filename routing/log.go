package routing

import (
	"github.com/breez/lnrouter/build"
	"github.com/btcsuite/btclog"
)

// log is the package-level logger used throughout routing. It starts out
// disabled; callers wire up a real backend via UseLogger, the same
// per-subsystem pattern a daemon's log.go sets up for every package it
// assembles.
var log btclog.Logger = build.NewSubLogger("RTNG", nil)

// UseLogger sets the package-wide logger used by the routing package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
