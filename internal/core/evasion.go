package core

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// ScanPattern is a concrete set of timing/fragmentation/decoy choices
// the engine can apply to a scan against a specific target (§4.8).
type ScanPattern struct {
	RateLimitMs               int
	TimingVariation           float64
	SourcePortRandomization   bool
	PacketFragmentation       bool
	DecoyHosts                []net.IP
	SuccessRate               float32
	DetectionProbability      float32
}

// EvasionProfile is what the engine has learned about a target's
// defenses: firewall/IDS presence, its apparent rate-limit ceiling,
// and the patterns that have worked or gotten blocked in the past.
type EvasionProfile struct {
	Target              net.IP
	FirewallDetected    bool
	IDSDetected         bool
	RateLimitThreshold  int
	OptimalTiming       time.Duration
	SuccessfulPatterns  []ScanPattern
	BlockedPatterns     []ScanPattern
	LastUpdated         int64
	Confidence          float32
}

type firewallSignature struct {
	name               string
	detectionMethod    string
	evasionTechniques  []string
	effectiveness      float32
}

type evasionResult int

const (
	evasionSuccess evasionResult = iota
	evasionBlocked
	evasionRateLimited
	evasionDetected
)

type evasionLearningRecord struct {
	target    string
	pattern   ScanPattern
	result    evasionResult
	timestamp int64
}

// EvasionEngine fingerprints a target's defenses and recommends scan
// patterns calibrated to avoid detection/blocking (§4.8). Grounded on
// original_source/src/scanner/evasion.rs's MLEvasionEngine.
type EvasionEngine struct {
	mu                 sync.RWMutex
	profiles           map[string]*EvasionProfile
	firewallSignatures []firewallSignature
	learningData       []evasionLearningRecord
}

// NewEvasionEngine builds an engine preloaded with known firewall
// signatures and their published evasion techniques.
func NewEvasionEngine() *EvasionEngine {
	e := &EvasionEngine{
		profiles: make(map[string]*EvasionProfile),
	}
	e.loadFirewallSignatures()
	return e
}

func (e *EvasionEngine) loadFirewallSignatures() {
	e.firewallSignatures = []firewallSignature{
		{
			name:            "pfSense",
			detectionMethod: "Rate limiting + SYN flood detection",
			evasionTechniques: []string{
				"Randomize source ports", "Use timing variations", "Fragment packets",
			},
			effectiveness: 0.8,
		},
		{
			name:            "iptables",
			detectionMethod: "Connection tracking",
			evasionTechniques: []string{
				"Use different scan types", "Randomize packet order", "Insert decoy scans",
			},
			effectiveness: 0.7,
		},
		{
			name:            "Windows Firewall",
			detectionMethod: "Application-based filtering",
			evasionTechniques: []string{
				"Use TCP connect scans", "Mimic legitimate traffic",
			},
			effectiveness: 0.6,
		},
		{
			name:            "Cloudflare",
			detectionMethod: "Behavioral analysis + rate limiting",
			evasionTechniques: []string{
				"Distribute across time", "Use legitimate user agents", "Rotate source IPs",
			},
			effectiveness: 0.9,
		},
	}
}

// AnalyzeTargetDefenses returns the existing profile for target or
// probes a fresh one, caching the result.
func (e *EvasionEngine) AnalyzeTargetDefenses(target net.IP) EvasionProfile {
	key := target.String()

	e.mu.RLock()
	if profile, ok := e.profiles[key]; ok {
		defer e.mu.RUnlock()
		return *profile
	}
	e.mu.RUnlock()

	profile := e.probeTargetDefenses(target)

	e.mu.Lock()
	e.profiles[key] = &profile
	e.mu.Unlock()

	return profile
}

// probeTargetDefenses estimates defense posture from the target's
// network class, the same coarse heuristic the original uses in place
// of genuine active probing (timing/rate-limit/firewall/IDS are all
// derived from ClassifyNetwork here, not measured).
func (e *EvasionEngine) probeTargetDefenses(target net.IP) EvasionProfile {
	networkType := ClassifyNetwork(target)

	return EvasionProfile{
		Target:             target,
		FirewallDetected:   networkType == NetworkPublicInternet || networkType == NetworkCloud,
		IDSDetected:        networkType == NetworkCloud,
		RateLimitThreshold: rateLimitThresholdFor(networkType),
		OptimalTiming:      baselineResponseFor(networkType),
		LastUpdated:        time.Now().Unix(),
		Confidence:         0.7,
	}
}

func rateLimitThresholdFor(networkType NetworkType) int {
	switch networkType {
	case NetworkLocalhost:
		return 10000
	case NetworkPrivateLAN:
		return 1000
	default:
		return 100
	}
}

func baselineResponseFor(networkType NetworkType) time.Duration {
	switch networkType {
	case NetworkLocalhost:
		return 1 * time.Millisecond
	case NetworkPrivateLAN:
		return 10 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

// GetOptimalScanPattern returns the recommended pattern for target
// given how many ports are being scanned, using historical profile
// data when available and conservative defaults otherwise.
func (e *EvasionEngine) GetOptimalScanPattern(target net.IP, portCount int) ScanPattern {
	e.mu.RLock()
	profile, ok := e.profiles[target.String()]
	e.mu.RUnlock()

	if ok {
		return predictOptimalPattern(profile, portCount)
	}
	return conservativePattern(target, portCount)
}

func predictOptimalPattern(profile *EvasionProfile, portCount int) ScanPattern {
	baseRate := profile.RateLimitThreshold
	if profile.FirewallDetected {
		baseRate /= 2
	}
	if portCount > 1000 {
		baseRate /= 2
	}

	timingVariation := 0.1
	if profile.IDSDetected {
		timingVariation = 0.3
	}

	var decoys []net.IP
	if profile.IDSDetected {
		decoys = generateDecoyHosts(profile.Target)
	}

	detectionProbability := float32(0.1)
	if profile.IDSDetected {
		detectionProbability = 0.3
	}

	return ScanPattern{
		RateLimitMs:             baseRate,
		TimingVariation:         timingVariation,
		SourcePortRandomization: profile.FirewallDetected,
		PacketFragmentation:     profile.IDSDetected,
		DecoyHosts:              decoys,
		DetectionProbability:    detectionProbability,
	}
}

func conservativePattern(target net.IP, portCount int) ScanPattern {
	baseRate := 50
	if IsPrivateIP(target) {
		baseRate = 200
	}
	if portCount > 1000 {
		baseRate /= 3
	}

	return ScanPattern{
		RateLimitMs:             baseRate,
		TimingVariation:         0.2,
		SourcePortRandomization: true,
		PacketFragmentation:     false,
		DetectionProbability:    0.2,
	}
}

// generateDecoyHosts returns 3 plausible same-subnet IPv4 decoys.
func generateDecoyHosts(target net.IP) []net.IP {
	v4 := target.To4()
	if v4 == nil {
		return nil
	}
	decoys := make([]net.IP, 0, 3)
	for i := 1; i <= 3; i++ {
		last := (int(v4[3]) + i*10) % 255
		decoys = append(decoys, net.IPv4(v4[0], v4[1], v4[2], byte(last)))
	}
	return decoys
}

// LearnFromScanResult records whether pattern worked against target
// and adjusts that target's confidence accordingly; every 50 records
// triggers a firewall-signature effectiveness retrain.
func (e *EvasionEngine) LearnFromScanResult(target net.IP, pattern ScanPattern, success, detected bool) {
	result := evasionBlocked
	switch {
	case detected:
		result = evasionDetected
	case success:
		result = evasionSuccess
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.learningData = append(e.learningData, evasionLearningRecord{
		target:    target.String(),
		pattern:   pattern,
		result:    result,
		timestamp: time.Now().Unix(),
	})

	if profile, ok := e.profiles[target.String()]; ok {
		switch result {
		case evasionSuccess:
			profile.SuccessfulPatterns = append(profile.SuccessfulPatterns, pattern)
			profile.Confidence = clampConfidence(profile.Confidence + 0.1)
		case evasionBlocked, evasionDetected:
			profile.BlockedPatterns = append(profile.BlockedPatterns, pattern)
			if profile.Confidence > 0.05 {
				profile.Confidence -= 0.05
			} else {
				profile.Confidence = 0
			}
		}
		profile.LastUpdated = time.Now().Unix()
	}

	if len(e.learningData)%50 == 0 {
		e.retrainEvasionModel()
	}
}

func (e *EvasionEngine) retrainEvasionModel() {
	for i := range e.firewallSignatures {
		sig := &e.firewallSignatures[i]
		var relevant []evasionLearningRecord
		for _, d := range e.learningData {
			if matchesFirewallSignature(d.pattern, sig) {
				relevant = append(relevant, d)
			}
		}
		if len(relevant) == 0 {
			continue
		}
		successes := 0
		for _, d := range relevant {
			if d.result == evasionSuccess {
				successes++
			}
		}
		successRate := float32(successes) / float32(len(relevant))
		sig.effectiveness = sig.effectiveness*0.8 + successRate*0.2
	}
}

func matchesFirewallSignature(pattern ScanPattern, sig *firewallSignature) bool {
	switch sig.name {
	case "pfSense":
		return pattern.RateLimitMs < 100
	case "iptables":
		return pattern.SourcePortRandomization
	case "Windows Firewall":
		return !pattern.PacketFragmentation
	case "Cloudflare":
		return pattern.TimingVariation > 0.2
	default:
		return false
	}
}

// GetEvasionRecommendations returns human-readable suggestions for
// scanning target, based on whatever profile has been learned so far.
func (e *EvasionEngine) GetEvasionRecommendations(target net.IP) []string {
	e.mu.RLock()
	profile, ok := e.profiles[target.String()]
	e.mu.RUnlock()

	if !ok {
		return []string{"First scan - using conservative approach"}
	}

	var recs []string
	if profile.FirewallDetected {
		recs = append(recs,
			"Firewall detected - using stealth techniques",
			"  - randomizing source ports",
			"  - adding timing variations",
		)
	}
	if profile.IDSDetected {
		recs = append(recs,
			"IDS detected - employing evasion tactics",
			"  - using packet fragmentation",
			"  - deploying decoy hosts",
		)
	}
	if profile.RateLimitThreshold < 100 {
		recs = append(recs,
			"Aggressive rate limiting detected",
			fmt.Sprintf("  - limiting to %d packets/sec", profile.RateLimitThreshold),
		)
	}
	return recs
}
