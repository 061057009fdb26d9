package physmem

import "log/slog"

// LogValue renders the region as a structured group.
func (r Region) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("base", uint64(r.base)),
		slog.Uint64("last", uint64(r.last)),
		slog.Uint64("length", uint64(r.Length())),
	)
}
