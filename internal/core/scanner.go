package core

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config configures a Scanner or UDPScanner: worker pool sizing,
// per-probe timeout, rate limiting, retry policy, and probe technique
// (§4.7). UDP-specific fields are consulted only by UDPScanner.
type Config struct {
	Workers       int
	Timeout       time.Duration
	RateLimit     int // packets/sec; values <= 0 fall back to 7500
	BannerGrab    bool
	MaxRetries    int
	Technique     ScanTechnique
	ParallelHosts int // host-level fan-out cap (§5)

	UDPWorkerRatio float64
	UDPReadTimeout time.Duration
	UDPBufferSize  int
	UDPJitterMaxMs int
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkerCount
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeoutMs * time.Millisecond
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 7500
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Technique == "" {
		c.Technique = TechniqueConnect
	}
	if c.ParallelHosts <= 0 {
		c.ParallelHosts = DefaultParallelHosts
	}
	if c.UDPReadTimeout <= 0 {
		c.UDPReadTimeout = c.Timeout
	}
	if c.UDPBufferSize <= 0 {
		c.UDPBufferSize = DefaultUDPBufferSize
	}
	if c.UDPJitterMaxMs <= 0 {
		c.UDPJitterMaxMs = DefaultUDPJitterMaxMs
	}
}

// Scanner drives TCP scanning (connect and the raw stealth techniques)
// and doubles as the shared base UDPScanner embeds for its own worker
// pool (§4.7). Grounded on the teacher's worker-pool + Event-channel
// scanner.go, generalized from a single flat port pool into the
// host-then-port two-layer semaphore model the spec's engine section
// describes: an errgroup caps hosts in flight, and a per-host channel
// semaphore caps ports in flight, sized by the effective parallelism
// recommend() derives for that host's network class.
type Scanner struct {
	config           *Config
	results          chan Event
	progressReporter *ProgressReporter
	wg               sync.WaitGroup
	rateTicker       *time.Ticker

	cache         *ScanCache
	fingerprinter *Fingerprinter
	learning      *AdaptiveLearning
}

// NewScanner builds a Scanner with its own result cache, fingerprinter,
// and adaptive-learning store (persisted at DefaultAdaptiveStorePath).
func NewScanner(cfg *Config) *Scanner {
	cfg.applyDefaults()

	results := make(chan Event, ResultChannelBufferSize)

	var rateTicker *time.Ticker
	if cfg.RateLimit > 0 {
		rateTicker = time.NewTicker(time.Second / time.Duration(cfg.RateLimit))
	}

	return &Scanner{
		config:           cfg,
		results:          results,
		progressReporter: NewProgressReporter(results),
		rateTicker:       rateTicker,
		cache:            NewScanCache(CacheTTLSeconds, CacheMaxEntries),
		fingerprinter:    NewFingerprinter(),
		learning:         NewAdaptiveLearning(DefaultAdaptiveStorePath()),
	}
}

// Results returns the event stream; closed once the scan finishes.
func (s *Scanner) Results() <-chan Event {
	return s.results
}

// StoreError returns the adaptive-learning store's most recent
// persistence error, if any. Check it after a scan completes; a
// non-nil value means learned data was not saved, not that the scan
// itself failed.
func (s *Scanner) StoreError() error {
	return s.learning.LastSaveError()
}

// ScanRange scans a single host, satisfying PortScanner.
func (s *Scanner) ScanRange(ctx context.Context, host string, ports []uint16) {
	s.ScanTargets(ctx, []ScanTarget{{Host: host, Ports: ports}})
}

// ScanTargets runs the host-level fan-out: one task per target, capped
// at config.ParallelHosts in flight, each running the full per-host
// pipeline (recommend, probe, fingerprint, cache, learn) (§4.7 steps
// 2-9). Step 10's MultiHostResult assembly is left to callers that
// consume the Event stream (the exporters); nothing here blocks
// waiting to build one in memory.
func (s *Scanner) ScanTargets(ctx context.Context, targets []ScanTarget) {
	totalPorts := totalPortCount(targets)
	if totalPorts == 0 {
		close(s.results)
		return
	}

	s.progressReporter.SetCompleted(0)
	progressDone := s.progressReporter.StartReporting(ctx, totalPorts)

	hostSem := make(chan struct{}, s.config.ParallelHosts)
	group, gctx := errgroup.WithContext(ctx)

	for _, target := range targets {
		target := target
		group.Go(func() error {
			select {
			case hostSem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-hostSem }()

			s.scanHost(gctx, target.Host, target.Ports)
			return nil
		})
	}
	_ = group.Wait()

	s.finishScan(ctx, progressDone)
}

// scanHost implements one target's pipeline: resolve its network class
// and recommended parameters, probe every port through a per-host
// worker pool sized by effective parallelism, fingerprint newly-open
// ports inline, and fold the outcome back into the learning store.
func (s *Scanner) scanHost(ctx context.Context, host string, ports []uint16) {
	ip := resolveIPForLearning(ctx, host)
	networkType := ClassifyNetwork(ip)
	recommended := s.learning.GetOptimalParams(ip)

	effectiveTimeout := s.config.Timeout
	if s.config.Timeout == UserDefaultTimeoutMs*time.Millisecond {
		effectiveTimeout = time.Duration(recommended.TimeoutMs) * time.Millisecond
	}
	effectiveParallelism := s.config.Workers
	if s.config.Workers == UserDefaultParallelism {
		effectiveParallelism = recommended.Parallelism
	}
	effectiveParallelism = clampInt(effectiveParallelism, MinParallelism, MaxParallelism)

	jobs := make(chan uint16, len(ports))
	portSem := make(chan struct{}, effectiveParallelism)
	var hostWG sync.WaitGroup

	var mu sync.Mutex
	portResults := make([]PortScanResult, 0, len(ports))
	var responseSumMs float64
	var responded int
	var timedOut int

	startTime := time.Now()

	worker := func() {
		defer hostWG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case port, ok := <-jobs:
				if !ok {
					return
				}

				select {
				case portSem <- struct{}{}:
				case <-ctx.Done():
					return
				}

				status, duration, svc := s.probePort(ctx, host, port, effectiveTimeout)
				<-portSem

				mu.Lock()
				responseSumMs += float64(duration.Milliseconds())
				responded++
				if status == StatusFiltered {
					timedOut++
				}
				portResults = append(portResults, PortScanResult{
					Port:            port,
					IsOpen:          status == StatusOpen,
					IsFiltered:      status == StatusFiltered,
					ResponseTimeMs:  float64(duration.Milliseconds()),
					ServiceDetected: serviceDetectedName(svc),
				})
				mu.Unlock()

				s.emitResult(ctx, host, port, status, duration, s.config.Technique, svc)
				s.progressReporter.IncrementCompleted()

				if s.rateTicker != nil {
					select {
					case <-s.rateTicker.C:
					case <-ctx.Done():
					}
				}
			}
		}
	}

	for i := 0; i < effectiveParallelism; i++ {
		hostWG.Add(1)
		go worker()
	}
	for _, port := range ports {
		jobs <- port
	}
	close(jobs)
	hostWG.Wait()

	s.learnFromHost(ip, networkType, portResults, time.Since(startTime), responseSumMs, responded, timedOut, effectiveParallelism, recommended.RateLimitMs)
}

// probePort checks the cache first, dispatches the configured
// technique's primitive on a miss, fingerprints the port inline if it
// came back Open and BannerGrab is set, and writes the outcome back to
// the cache (§4.7 steps 6 and 8; fingerprinting done inline per port
// rather than batched after the whole host finishes, since the two
// orderings are observationally equivalent once the Event stream is
// the only consumer — no invariant requires the batched form).
func (s *Scanner) probePort(ctx context.Context, host string, port uint16, timeout time.Duration) (PortStatus, time.Duration, *ServiceInfo) {
	technique := s.config.Technique
	if status, svc, ok := s.cache.Get(host, port, technique); ok {
		return status, 0, svc
	}

	status, duration := s.probeWithRetry(ctx, host, port, technique, timeout)

	var svc *ServiceInfo
	if status == StatusOpen && s.config.BannerGrab {
		svc = s.fingerprinter.Fingerprint(ctx, host, port)
	}

	s.cache.Put(host, port, status, svc, technique)
	return status, duration, svc
}

func (s *Scanner) probeWithRetry(ctx context.Context, host string, port uint16, technique ScanTechnique, timeout time.Duration) (PortStatus, time.Duration) {
	maxRetries := s.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var status PortStatus
	var duration time.Duration
	for attempt := 0; attempt <= maxRetries; attempt++ {
		status, duration = s.dispatchProbe(ctx, host, port, technique, timeout)
		if status != StatusFiltered || attempt == maxRetries {
			return status, duration
		}
		select {
		case <-time.After(s.retryBackoff(attempt)):
		case <-ctx.Done():
			return status, duration
		}
	}
	return status, duration
}

func (s *Scanner) dispatchProbe(ctx context.Context, host string, port uint16, technique ScanTechnique, timeout time.Duration) (PortStatus, time.Duration) {
	timeoutMs := int(timeout / time.Millisecond)
	switch technique {
	case TechniqueSyn:
		return SynScan(ctx, host, port, timeoutMs)
	case TechniqueFin:
		return FinScan(ctx, host, port, timeoutMs)
	case TechniqueXmas:
		return XmasScan(ctx, host, port, timeoutMs)
	case TechniqueNull:
		return NullScan(ctx, host, port, timeoutMs)
	case TechniqueUDP:
		status, duration, _ := UDPScan(ctx, host, port, timeout)
		return status, duration
	default:
		if IsPrivateIP(net.ParseIP(host)) {
			return FastConnectScan(ctx, host, port, timeoutMs)
		}
		return ConnectScan(ctx, host, port, timeout)
	}
}

// retryBackoff doubles RetryBackoffBase per attempt plus jitter,
// capped at the configured timeout plus max jitter.
func (s *Scanner) retryBackoff(attempt int) time.Duration {
	base := RetryBackoffBase * time.Duration(uint64(1)<<uint(attempt))
	jitter := time.Duration(RetryJitterMinMs+rand.Intn(RetryJitterRangeMs)) * time.Millisecond
	backoff := base + jitter

	cap := s.config.Timeout + RetryJitterMaxMs*time.Millisecond
	if backoff > cap {
		backoff = cap
	}
	return backoff
}

func (s *Scanner) emitResult(ctx context.Context, host string, port uint16, status PortStatus, duration time.Duration, technique ScanTechnique, svc *ServiceInfo) {
	event := NewResultEvent(ResultEvent{
		Host:      host,
		Port:      port,
		Status:    status,
		Filtered:  status == StatusFiltered,
		Duration:  duration,
		Service:   svc,
		Technique: technique,
	})
	select {
	case s.results <- event:
	case <-ctx.Done():
	}
}

// learnFromHost folds this host's completed scan into the adaptive
// store (§4.7 step 9). Learning updates are serialized through
// AdaptiveLearning's own mutex, satisfying §5's "concurrent host
// updates must serialize or commutatively merge" requirement.
func (s *Scanner) learnFromHost(ip net.IP, networkType NetworkType, portResults []PortScanResult, elapsed time.Duration, responseSumMs float64, responded, timedOut, parallelism, rateLimitMs int) {
	if ip == nil || len(portResults) == 0 {
		return
	}

	avgResponseMs := 0.0
	if responded > 0 {
		avgResponseMs = responseSumMs / float64(responded)
	}
	timeoutRate := 0.0
	if responded > 0 {
		timeoutRate = float64(timedOut) / float64(responded)
	}

	s.learning.LearnFromScan(&ScanLearningData{
		Target:          ip,
		NetworkType:     networkType,
		PortResults:     portResults,
		ScanDuration:    elapsed,
		AvgResponseMs:   avgResponseMs,
		TimeoutRate:     timeoutRate,
		ParallelismUsed: parallelism,
		RateLimitMsUsed: rateLimitMs,
		ScanPerformance: 1.0 - timeoutRate,
	})
}

func serviceDetectedName(svc *ServiceInfo) string {
	if svc == nil {
		return ""
	}
	return svc.Name
}

func resolveIPForLearning(ctx context.Context, host string) net.IP {
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return nil
	}
	return ips[0]
}

// feedJobs flattens every target's ports into a single scanJob stream.
// Shared with UDPScanner, whose worker pool has no per-host semaphore
// layer (§4.7's two-layer model is TCP-specific; UDP keeps the
// teacher's flat worker-ratio pool, since ICMP rate limiting makes
// per-host fan-out counterproductive for UDP probing).
func (s *Scanner) feedJobs(ctx context.Context, jobs chan<- scanJob, targets []ScanTarget) {
	defer close(jobs)
	for _, target := range targets {
		for _, port := range target.Ports {
			select {
			case <-ctx.Done():
				return
			case jobs <- scanJob{host: target.Host, port: port}:
			}
		}
	}
}

// finishScan waits for the progress reporter to drain, stops the
// shared rate ticker, and closes the result stream.
func (s *Scanner) finishScan(ctx context.Context, progressDone <-chan struct{}) {
	select {
	case <-progressDone:
	case <-ctx.Done():
	}
	if s.rateTicker != nil {
		s.rateTicker.Stop()
	}
	close(s.results)
}
