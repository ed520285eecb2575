package core

import (
	"sync"
	"time"
)

// CachedPortResult is one cached probe outcome for a single port.
type CachedPortResult struct {
	Status    PortStatus
	Service   *ServiceInfo
	Timestamp time.Time
	Technique ScanTechnique
}

// CachedHostResult aggregates cached port results for one host.
type CachedHostResult struct {
	Target       string
	Ports        map[uint16]CachedPortResult
	LastFullScan time.Time
}

// ScanCache is a capacity-bounded, TTL-evicted result cache (§3, §5).
// Entries are keyed by host; eviction happens on write when the cache
// is at capacity, first by stale-sweep (last full scan older than
// 2×TTL) then, if still over capacity, by trimming the oldest entries.
type ScanCache struct {
	mu         sync.RWMutex
	entries    map[string]*CachedHostResult
	ttl        time.Duration
	maxEntries int
}

// NewScanCache constructs a cache with the given TTL (seconds) and
// entry capacity, matching scan_cache.rs's ScanCache::new signature.
func NewScanCache(ttlSeconds int, maxEntries int) *ScanCache {
	return &ScanCache{
		entries:    make(map[string]*CachedHostResult),
		ttl:        time.Duration(ttlSeconds) * time.Second,
		maxEntries: maxEntries,
	}
}

// Get returns a cached result if present, unexpired, and recorded
// under the same scan technique.
func (c *ScanCache) Get(host string, port uint16, technique ScanTechnique) (PortStatus, *ServiceInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hr, ok := c.entries[host]
	if !ok {
		return "", nil, false
	}
	pr, ok := hr.Ports[port]
	if !ok {
		return "", nil, false
	}
	if !c.isValid(pr) || pr.Technique != technique {
		return "", nil, false
	}
	return pr.Status, pr.Service, true
}

// Put records a scan result and triggers eviction if over capacity.
func (c *ScanCache) Put(host string, port uint16, status PortStatus, service *ServiceInfo, technique ScanTechnique) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	hr, ok := c.entries[host]
	if !ok {
		hr = &CachedHostResult{
			Target:       host,
			Ports:        make(map[uint16]CachedPortResult),
			LastFullScan: now,
		}
		c.entries[host] = hr
	}
	hr.Ports[port] = CachedPortResult{
		Status:    status,
		Service:   service,
		Timestamp: now,
		Technique: technique,
	}

	if len(c.entries) > c.maxEntries {
		c.evictLocked()
	}
}

// HasRecentFullScan reports whether the host was fully scanned within
// maxAge.
func (c *ScanCache) HasRecentFullScan(host string, maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hr, ok := c.entries[host]
	if !ok {
		return false
	}
	return time.Since(hr.LastFullScan) < maxAge
}

// CachedOpenPorts returns the still-valid Open ports recorded for host.
func (c *ScanCache) CachedOpenPorts(host string) []uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hr, ok := c.entries[host]
	if !ok {
		return nil
	}
	var ports []uint16
	for port, pr := range hr.Ports {
		if pr.Status == StatusOpen && c.isValid(pr) {
			ports = append(ports, port)
		}
	}
	return ports
}

// ClearTarget removes all cached entries for a single host.
func (c *ScanCache) ClearTarget(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, host)
}

// ClearAll empties the cache.
func (c *ScanCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CachedHostResult)
}

// CacheStats summarizes cache occupancy and validity.
type CacheStats struct {
	TotalHosts     int
	TotalPorts     int
	ValidResults   int
	ExpiredResults int
}

// HitRate is ValidResults/TotalPorts, or 0 when the cache is empty.
func (s CacheStats) HitRate() float64 {
	if s.TotalPorts == 0 {
		return 0
	}
	return float64(s.ValidResults) / float64(s.TotalPorts)
}

// Stats computes a snapshot of cache occupancy.
func (c *ScanCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stats CacheStats
	stats.TotalHosts = len(c.entries)
	for _, hr := range c.entries {
		stats.TotalPorts += len(hr.Ports)
		for _, pr := range hr.Ports {
			if c.isValid(pr) {
				stats.ValidResults++
			} else {
				stats.ExpiredResults++
			}
		}
	}
	return stats
}

func (c *ScanCache) isValid(pr CachedPortResult) bool {
	return time.Since(pr.Timestamp) < c.ttl
}

// evictLocked performs stale-sweep then oldest-first trimming. Callers
// must hold c.mu for writing.
func (c *ScanCache) evictLocked() {
	staleCutoff := 2 * c.ttl
	for key, hr := range c.entries {
		if time.Since(hr.LastFullScan) >= staleCutoff {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	aged := make([]agedEntry, 0, len(c.entries))
	for key, hr := range c.entries {
		aged = append(aged, agedEntry{key: key, age: hr.LastFullScan})
	}
	sortAgedByOldestFirst(aged)

	toRemove := len(c.entries) - c.maxEntries
	for i := 0; i < toRemove && i < len(aged); i++ {
		delete(c.entries, aged[i].key)
	}
}

type agedEntry struct {
	key string
	age time.Time
}

func sortAgedByOldestFirst(aged []agedEntry) {
	// Small N (bounded by maxEntries overflow); simple insertion sort
	// avoids importing sort for a one-off comparator. Mirrors the
	// straightforward sort_by used in scan_cache.rs's cleanup.
	for i := 1; i < len(aged); i++ {
		j := i
		for j > 0 && aged[j-1].age.After(aged[j].age) {
			aged[j-1], aged[j] = aged[j], aged[j-1]
			j--
		}
	}
}
