package trapframe

import "log/slog"

// LogValue renders the frame as a structured group, so a single
// logger.Debug("trap", "frame", frame) call captures everything a failure
// report needs without a caller having to spell out each field.
func (f *TrapFrame) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("vector", int(f.vector)),
		slog.String("name", VectorName(f.vector)),
		slog.Uint64("ip", uint64(f.rip)),
		slog.Bool("fromUser", f.fromUser),
	}

	if f.hasError {
		attrs = append(attrs, slog.Uint64("errorCode", uint64(f.errorCode)))
	}

	return slog.GroupValue(attrs...)
}
