// Package log is a small wrapper around the standard library logger that
// gives every component a named logger and optional key=value fields.
//
// Every line carries a level and the logger name:
//
//	2024/01/15 10:00:00.000000 INFO [api>] GET /records 200 request_id=6f1c...
//
// Debug output is off by default. It can be enabled for everything with
// SetGlobalDebug or for a single component with EnableDebugFor.
//
// Usage:
//
//	l := log.ForService("search")
//	l.Infof("serving %d records", n)
//	l.With("request_id", id).Debugf("pipeline: %s", p.Explain())
//
// The package name collides with the standard library. Alias one of them
// when both are needed:
//
//	import (
//		stdlog "log"
//		"github.com/rubiojr/fmcsa/pkg/log"
//	)
package log
