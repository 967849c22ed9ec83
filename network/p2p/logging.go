package p2p

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/rs/zerolog"
)

// SetLibp2pLogLevel aligns the verbosity of the libp2p subsystems with the node log
// level. libp2p logs through go-log, separately from the node logger, and is kept one
// level quieter.
func SetLibp2pLogLevel(level zerolog.Level) {
	var lvl logging.LogLevel
	switch {
	case level <= zerolog.DebugLevel:
		lvl = logging.LevelInfo
	case level == zerolog.InfoLevel:
		lvl = logging.LevelWarn
	default:
		lvl = logging.LevelError
	}
	logging.SetAllLoggers(lvl)
}
