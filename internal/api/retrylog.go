package api

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/soyeahso/creatorpilot/internal/logging"
)

// leveledLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.emit(l.log.Warn(), msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.emit(l.log.Warn(), msg, kv) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.emit(l.log.Debug(), msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.emit(l.log.Debug(), msg, kv) }

func (l leveledLogger) emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Str(key, v.String())
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
