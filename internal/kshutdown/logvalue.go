package kshutdown

import "log/slog"

// LogValue renders the coordinator's election state as a structured group.
func (k *KShutdown) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("initiator", k.initiator.Load()),
		slog.Bool("rebootOnFail", k.rebootOnFail.Load()),
		slog.Uint64("rebootDelayMs", k.rebootDelay.Load()),
	)
}
