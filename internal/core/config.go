package core

import "time"

// EngineConfig holds runtime configuration for a script driver.
type EngineConfig struct {
	MemoryLimitMB     int // per-engine heap limit, 0 = engine default
	ExecutionTimeout  int // milliseconds before FindProxyForURL is interrupted, 0 = unlimited
	MaxScriptSizeKB   int // max PAC script size, 0 = unlimited
	ResolveTimeoutMs  int // dnsResolve lookup timeout
	ReclaimIntervalMs int // delay between idle reclamation steps
}

// Defaults for zero-valued EngineConfig fields.
const (
	DefaultResolveTimeout  = 5 * time.Second
	DefaultReclaimInterval = 100 * time.Millisecond
)

// ResolveTimeout returns the dnsResolve timeout, falling back to the default.
func (c EngineConfig) ResolveTimeout() time.Duration {
	if c.ResolveTimeoutMs <= 0 {
		return DefaultResolveTimeout
	}
	return time.Duration(c.ResolveTimeoutMs) * time.Millisecond
}

// ReclaimInterval returns the idle reclamation period, falling back to the default.
func (c EngineConfig) ReclaimInterval() time.Duration {
	if c.ReclaimIntervalMs <= 0 {
		return DefaultReclaimInterval
	}
	return time.Duration(c.ReclaimIntervalMs) * time.Millisecond
}

// Timeout returns the execution watchdog duration; zero disables it.
func (c EngineConfig) Timeout() time.Duration {
	if c.ExecutionTimeout <= 0 {
		return 0
	}
	return time.Duration(c.ExecutionTimeout) * time.Millisecond
}
