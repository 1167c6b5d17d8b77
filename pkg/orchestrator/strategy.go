package orchestrator

import "time"

// Strategy governs caching and deduplication for one logical call.
type Strategy string

const (
	// StrategyImmediate never caches and never delays; for writes and
	// status probes.
	StrategyImmediate Strategy = "immediate"
	// StrategyDataSync never caches but deduplicates identical in-flight
	// calls; for callers that want a guaranteed-fresh read.
	StrategyDataSync Strategy = "data-sync"
	// StrategyDataFetch caches with the default TTL; for bulk reads.
	StrategyDataFetch Strategy = "data-fetch"
	// StrategyOnDemand caches with a short TTL; for reports.
	StrategyOnDemand Strategy = "on-demand"
	// StrategyScheduled caches with a long TTL. No call site in this module
	// passes it; the standard-sync job reaches the ledger through the
	// syncservice methods, which use data-fetch and on-demand.
	StrategyScheduled Strategy = "scheduled"
)

// Priority influences dispatch ordering among requests contending for the
// same concurrency slot. It never bypasses the rate limit itself.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// cached reports whether results for this strategy are ever served from cache.
func (s Strategy) cached() bool {
	switch s {
	case StrategyDataFetch, StrategyOnDemand, StrategyScheduled:
		return true
	default:
		return false
	}
}

// deduplicated reports whether concurrent identical calls share one result.
func (s Strategy) deduplicated() bool {
	switch s {
	case StrategyDataSync, StrategyDataFetch, StrategyOnDemand, StrategyScheduled:
		return true
	default:
		return false
	}
}

// ttl returns the cache TTL for caching strategies given the configured
// defaults, and the stale window during which an expired-but-not-yet-evicted
// entry is still served while a refresh happens in the background.
func (s Strategy) ttl(cfg CacheConfig) (ttl, stale time.Duration) {
	switch s {
	case StrategyDataFetch:
		return cfg.DataFetchTTL, cfg.DataFetchTTL / 2
	case StrategyOnDemand:
		return cfg.OnDemandTTL, cfg.OnDemandTTL / 2
	case StrategyScheduled:
		return cfg.ScheduledTTL, cfg.ScheduledTTL / 2
	default:
		return 0, 0
	}
}
