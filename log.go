package oamap

import (
	"github.com/op/go-logging"
)

// log is the package logger. The library installs no backend of its own;
// binaries configure output and levels through go-logging. Until they do,
// resize chatter below WARNING is muted.
var log = logging.MustGetLogger("oamap")

func init() {
	logging.SetLevel(logging.WARNING, "oamap")
}
