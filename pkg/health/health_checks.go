package health

import (
	"context"
	"runtime"
)

// StoreCheck reports the run store unhealthy when ping fails.
func StoreCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy, Message: "Connected"}
	}
}

// SubscriberCheck reports event fan-out state. No subscribers is healthy;
// events are simply not forwarded.
func SubscriberCheck(count func() int) CheckFunc {
	return func(ctx context.Context) Check {
		n := count()
		return Check{
			Status:  StatusHealthy,
			Details: map[string]any{"subscribers": n},
		}
	}
}

// MemoryCheck reports degraded when heap allocation exceeds limitBytes.
// A zero limit never degrades.
func MemoryCheck(limitBytes uint64) CheckFunc {
	return memoryCheck(limitBytes, func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	})
}

func memoryCheck(limitBytes uint64, usage func() (alloc, sys uint64)) CheckFunc {
	return func(ctx context.Context) Check {
		alloc, sys := usage()
		check := Check{
			Status: StatusHealthy,
			Details: map[string]any{
				"alloc_bytes": alloc,
				"sys_bytes":   sys,
			},
		}
		if limitBytes > 0 && alloc > limitBytes {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
