package core

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// NetworkProfile tracks per-network-class timing/parallelism history
// used to recommend scan parameters (§4.6).
type NetworkProfile struct {
	NetworkType        NetworkType `json:"network_type"`
	AvgResponseTimeMs  float64     `json:"avg_response_time_ms"`
	TimeoutRate        float64     `json:"timeout_rate"`
	OptimalParallelism int         `json:"optimal_parallelism"`
	OptimalRateLimitMs int         `json:"optimal_rate_limit_ms"`
	LastUpdated        int64       `json:"last_updated"`
	ScanCount          int         `json:"scan_count"`
}

// PortIntelligence tracks a single port's observed open-rate and
// response characteristics across scans.
type PortIntelligence struct {
	Port               uint16  `json:"port"`
	FoundCount         int     `json:"found_count"`
	SuccessRate        float64 `json:"success_rate"`
	AvgResponseTimeMs  float64 `json:"avg_response_time_ms"`
	ServiceConfidence  float64 `json:"service_confidence"`
	LastSeen           int64   `json:"last_seen"`
}

// ResponsePattern summarizes a host's timing/ICMP behavior, used to
// flag likely firewalling.
type ResponsePattern struct {
	RSTTiming      float64 `json:"rst_timing"`
	SynAckTiming   float64 `json:"syn_ack_timing"`
	TimeoutPattern float64 `json:"timeout_pattern"`
	ICMPResponses  bool    `json:"icmp_responses"`
}

// HostIntelligence tracks everything learned about a specific target.
type HostIntelligence struct {
	Host             string          `json:"host"`
	NetworkProfile   NetworkProfile  `json:"network_profile"`
	OpenPorts        []uint16        `json:"open_ports"`
	OSFingerprint    string          `json:"os_fingerprint,omitempty"`
	ResponsePattern  ResponsePattern `json:"response_pattern"`
	FirewallDetected bool            `json:"firewall_detected"`
	LastScan         int64           `json:"last_scan"`
}

// GlobalStats aggregates learning across every scan ever recorded.
type GlobalStats struct {
	TotalScans        int            `json:"total_scans"`
	TotalPortsFound   int            `json:"total_ports_found"`
	TotalHostsScanned int            `json:"total_hosts_scanned"`
	SuccessRate       float64        `json:"success_rate"`
	AvgScanTimeMs     float64        `json:"avg_scan_time_ms"`
	MostCommonPorts   []PortCount    `json:"most_common_ports"`
}

// PortCount pairs a port number with how many scans found it open.
type PortCount struct {
	Port  uint16 `json:"port"`
	Count int    `json:"count"`
}

// PortScanResult is a single port's outcome fed into the learning
// store after a scan completes.
type PortScanResult struct {
	Port            uint16
	IsOpen          bool
	IsFiltered      bool
	ResponseTimeMs  float64
	ServiceDetected string
}

// ScanLearningData is what the scan engine reports back to the
// learning store once a scan finishes (§4.6, §4.7).
type ScanLearningData struct {
	Target          net.IP
	NetworkType     NetworkType
	PortResults     []PortScanResult
	ScanDuration    time.Duration
	AvgResponseMs   float64
	TimeoutRate     float64
	ParallelismUsed int
	RateLimitMsUsed int
	ScanPerformance float64 // 0.0-1.0, success-rate/speed composite
}

// OptimalScanParams is the engine's recommendation for a target,
// derived from whatever network-profile history exists.
type OptimalScanParams struct {
	TimeoutMs      int
	RateLimitMs    int
	Parallelism    int
	SuggestedPorts []uint16
	NetworkType    NetworkType
}

// AdaptiveLearning is the persisted cross-run learning store (§4.6).
// Grounded on original_source/src/adaptive.rs's AdaptiveLearning.
type AdaptiveLearning struct {
	mu sync.Mutex

	NetworkProfiles  map[string]*NetworkProfile   `json:"network_profiles"`
	PortIntelligence map[uint16]*PortIntelligence `json:"port_intelligence"`
	HostIntelligence map[string]*HostIntelligence `json:"host_intelligence"`
	GlobalStats      GlobalStats                  `json:"global_stats"`

	path        string
	lastSaveErr error
}

// LastSaveError returns the error from the most recent persistence
// attempt, if any. Saves are best-effort (a scan must not fail just
// because the store couldn't be written), so callers that want to
// surface disk/permission problems to the user poll this after a scan.
func (a *AdaptiveLearning) LastSaveError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaveErr
}

// NewAdaptiveLearning loads the store from storePath if present,
// otherwise seeds it with baseline port intelligence for common
// services.
func NewAdaptiveLearning(storePath string) *AdaptiveLearning {
	if data, err := os.ReadFile(storePath); err == nil {
		var loaded AdaptiveLearning
		if json.Unmarshal(data, &loaded) == nil {
			loaded.path = storePath
			if loaded.NetworkProfiles == nil {
				loaded.NetworkProfiles = make(map[string]*NetworkProfile)
			}
			if loaded.PortIntelligence == nil {
				loaded.PortIntelligence = initialPortIntelligence()
			}
			if loaded.HostIntelligence == nil {
				loaded.HostIntelligence = make(map[string]*HostIntelligence)
			}
			return &loaded
		}
	}
	return &AdaptiveLearning{
		NetworkProfiles:  make(map[string]*NetworkProfile),
		PortIntelligence: initialPortIntelligence(),
		HostIntelligence: make(map[string]*HostIntelligence),
		path:             storePath,
	}
}

// DefaultAdaptiveStorePath mirrors the original's config-dir layout:
// $XDG_CONFIG_HOME/portscope/adaptive_learning.json (or the OS
// equivalent via os.UserConfigDir).
func DefaultAdaptiveStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "portscope", "adaptive_learning.json")
}

func initialPortIntelligence() map[uint16]*PortIntelligence {
	now := time.Now().Unix()
	baseline := []struct {
		port uint16
		rate float64
	}{
		{21, 0.1}, {22, 0.8}, {23, 0.05},
		{25, 0.3}, {53, 0.9}, {80, 0.9},
		{110, 0.1}, {143, 0.2}, {443, 0.9},
		{993, 0.1}, {995, 0.05},
	}
	intel := make(map[uint16]*PortIntelligence, len(baseline))
	for _, b := range baseline {
		intel[b.port] = &PortIntelligence{
			Port:              b.port,
			FoundCount:        1,
			SuccessRate:       b.rate,
			AvgResponseTimeMs: 100.0,
			ServiceConfidence: 0.9,
			LastSeen:          now,
		}
	}
	return intel
}

// Save persists the store to its config path, creating the parent
// directory if needed.
func (a *AdaptiveLearning) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveLocked()
}

func (a *AdaptiveLearning) saveLocked() error {
	if a.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.path, data, 0o644)
}

// LearnFromScan folds a completed scan's results into every tracked
// dimension and persists the updated store.
func (a *AdaptiveLearning) LearnFromScan(data *ScanLearningData) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateNetworkProfile(data)
	a.updatePortIntelligence(data)
	a.updateHostIntelligence(data)
	a.updateGlobalStats(data)

	a.lastSaveErr = a.saveLocked()
}

func (a *AdaptiveLearning) updateNetworkProfile(data *ScanLearningData) {
	key := string(data.NetworkType)
	profile, ok := a.NetworkProfiles[key]
	if !ok {
		profile = &NetworkProfile{
			NetworkType:        data.NetworkType,
			AvgResponseTimeMs:  data.AvgResponseMs,
			TimeoutRate:        data.TimeoutRate,
			OptimalParallelism: data.ParallelismUsed,
			OptimalRateLimitMs: data.RateLimitMsUsed,
			LastUpdated:        time.Now().Unix(),
		}
		a.NetworkProfiles[key] = profile
	}

	const alpha = NetworkProfileEWMAAlpha
	profile.AvgResponseTimeMs = profile.AvgResponseTimeMs*(1-alpha) + data.AvgResponseMs*alpha
	profile.TimeoutRate = profile.TimeoutRate*(1-alpha) + data.TimeoutRate*alpha

	switch {
	case data.ScanPerformance > PerformanceHighWatermark:
		profile.OptimalParallelism = clampInt(int(float64(profile.OptimalParallelism)*(1+ParamAdjustPct)), MinParallelism, MaxParallelism)
		profile.OptimalRateLimitMs = maxInt(int(float64(profile.OptimalRateLimitMs)*(1-ParamAdjustPct)), MinRateLimitMs)
	case data.ScanPerformance < PerformanceLowWatermark:
		profile.OptimalParallelism = clampInt(int(float64(profile.OptimalParallelism)*(1-ParamAdjustPct)), MinParallelism, MaxParallelism)
		profile.OptimalRateLimitMs = int(float64(profile.OptimalRateLimitMs) * (1 + 2*ParamAdjustPct))
	}

	profile.ScanCount++
	profile.LastUpdated = time.Now().Unix()
}

// updatePortIntelligence refreshes each observed port's running
// open-rate as a running mean over observations:
// rate' = rate + (obs-rate)/(found_count+1), where obs is 1 for an open
// result and 0 otherwise. Closed and filtered results therefore pull
// the rate back down, so it does not converge to 1.0 for a port that
// was seen open only once.
func (a *AdaptiveLearning) updatePortIntelligence(data *ScanLearningData) {
	for _, port := range data.PortResults {
		intel, ok := a.PortIntelligence[port.Port]
		if !ok {
			intel = &PortIntelligence{
				Port:              port.Port,
				SuccessRate:       0.5,
				AvgResponseTimeMs: 1000.0,
				ServiceConfidence: 0.5,
			}
			a.PortIntelligence[port.Port] = intel
		}

		obs := 0.0
		if port.IsOpen {
			obs = 1.0
			intel.FoundCount++
			intel.LastSeen = time.Now().Unix()
		}
		intel.SuccessRate += (obs - intel.SuccessRate) / float64(intel.FoundCount+1)

		if port.IsOpen && port.ResponseTimeMs > 0 {
			intel.AvgResponseTimeMs = intel.AvgResponseTimeMs*0.8 + port.ResponseTimeMs*0.2
		}
	}
}

func (a *AdaptiveLearning) updateHostIntelligence(data *ScanLearningData) {
	key := data.Target.String()
	host, ok := a.HostIntelligence[key]
	if !ok {
		host = &HostIntelligence{
			Host: key,
			NetworkProfile: NetworkProfile{
				NetworkType:        data.NetworkType,
				AvgResponseTimeMs:  data.AvgResponseMs,
				TimeoutRate:        data.TimeoutRate,
				OptimalParallelism: data.ParallelismUsed,
				OptimalRateLimitMs: data.RateLimitMsUsed,
				LastUpdated:        time.Now().Unix(),
				ScanCount:          1,
			},
		}
		a.HostIntelligence[key] = host
	}

	open := make([]uint16, 0, len(data.PortResults))
	filteredCount := 0
	for _, p := range data.PortResults {
		if p.IsOpen {
			open = append(open, p.Port)
		}
		if p.IsFiltered {
			filteredCount++
		}
	}
	host.OpenPorts = open
	if len(data.PortResults) > 0 {
		host.FirewallDetected = float64(filteredCount)/float64(len(data.PortResults)) > 0.7
	}
	host.LastScan = time.Now().Unix()
}

// updateGlobalStats recomputes the most-common-ports ranking from
// port_intelligence.found_count on every call, rather than
// incrementally merging per-scan counts into a running list — the
// original's incremental merge double-counts ports across
// learn_from_scan calls whenever the same port is open in back-to-back
// scans of different hosts, permanently inflating its rank. A fresh
// recompute from source-of-truth avoids that drift entirely.
func (a *AdaptiveLearning) updateGlobalStats(data *ScanLearningData) {
	a.GlobalStats.TotalScans++

	openCount := 0
	for _, p := range data.PortResults {
		if p.IsOpen {
			openCount++
		}
	}
	a.GlobalStats.TotalPortsFound += openCount

	ranked := make([]PortCount, 0, len(a.PortIntelligence))
	for port, intel := range a.PortIntelligence {
		if intel.FoundCount > 0 {
			ranked = append(ranked, PortCount{Port: port, Count: intel.FoundCount})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Port < ranked[j].Port
	})
	if len(ranked) > TopCommonPortsK {
		ranked = ranked[:TopCommonPortsK]
	}
	a.GlobalStats.MostCommonPorts = ranked
}

// GetOptimalParams returns the learned (or default) scan parameters
// for target's network class.
func (a *AdaptiveLearning) GetOptimalParams(target net.IP) OptimalScanParams {
	a.mu.Lock()
	defer a.mu.Unlock()

	networkType := ClassifyNetwork(target)
	if profile, ok := a.NetworkProfiles[string(networkType)]; ok {
		return OptimalScanParams{
			TimeoutMs:      int(profile.AvgResponseTimeMs * 3.0),
			RateLimitMs:    profile.OptimalRateLimitMs,
			Parallelism:    profile.OptimalParallelism,
			SuggestedPorts: a.smartPortListLocked(networkType),
			NetworkType:    networkType,
		}
	}
	return defaultParamsForNetwork(networkType)
}

// GetSmartPortList returns the top-scoring ports for networkType,
// ranked by success rate, confidence, recency, and a per-network
// bonus for conventionally-likely ports.
func (a *AdaptiveLearning) GetSmartPortList(networkType NetworkType) []uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.smartPortListLocked(networkType)
}

func (a *AdaptiveLearning) smartPortListLocked(networkType NetworkType) []uint16 {
	type scored struct {
		port  uint16
		score float64
	}
	now := time.Now().Unix()
	scores := make([]scored, 0, len(a.PortIntelligence))
	for port, intel := range a.PortIntelligence {
		ageDays := float64(now-intel.LastSeen) / 86400.0
		recency := 1.0 - minFloat(ageDays/RecencyDecayDays, 1.0)
		bonus := networkBonus(networkType, port)
		score := intel.SuccessRate * intel.ServiceConfidence * recency * bonus
		scores = append(scores, scored{port: port, score: score})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].port < scores[j].port
	})
	if len(scores) > SmartPortListSize {
		scores = scores[:SmartPortListSize]
	}
	ports := make([]uint16, len(scores))
	for i, s := range scores {
		ports[i] = s.port
	}
	return ports
}

func networkBonus(networkType NetworkType, port uint16) float64 {
	switch networkType {
	case NetworkLocalhost:
		if port == 22 || port == 80 {
			return 2.0
		}
	case NetworkPrivateLAN:
		if port == 445 || port == 135 {
			return 1.5
		}
	case NetworkPublicInternet:
		if port == 80 || port == 443 {
			return 1.5
		}
	case NetworkCloud:
		if port == 22 || port == 80 || port == 443 {
			return 1.5
		}
	}
	return 1.0
}

func defaultParamsForNetwork(networkType NetworkType) OptimalScanParams {
	switch networkType {
	case NetworkLocalhost:
		return OptimalScanParams{TimeoutMs: 200, RateLimitMs: 10, Parallelism: 100,
			SuggestedPorts: []uint16{22, 80, 443, 8080, 3306, 5432}, NetworkType: networkType}
	case NetworkPrivateLAN:
		return OptimalScanParams{TimeoutMs: 500, RateLimitMs: 50, Parallelism: 50,
			SuggestedPorts: []uint16{22, 80, 443, 445, 135, 3389}, NetworkType: networkType}
	case NetworkCloud:
		return OptimalScanParams{TimeoutMs: 1000, RateLimitMs: 100, Parallelism: 30,
			SuggestedPorts: []uint16{22, 80, 443, 8080, 9000, 3000}, NetworkType: networkType}
	default: // NetworkPublicInternet
		return OptimalScanParams{TimeoutMs: 2000, RateLimitMs: 200, Parallelism: 20,
			SuggestedPorts: []uint16{80, 443, 22, 21, 25, 53}, NetworkType: networkType}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
