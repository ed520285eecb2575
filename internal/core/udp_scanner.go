package core

import (
	"context"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/exec/portscope/internal/core/detectors"
)

// UDPScanner scans UDP ports using per-service crafted probes where
// one is known, falling back to an empty datagram (§4.1, §C.1). It
// embeds *Scanner to reuse its Event stream, progress reporter, cache,
// fingerprinter, and rate ticker, but runs its own flat worker pool
// (udp_runner.go) instead of TCP's host/port two-layer semaphore model
// — ICMP-triggered rate limiting on most networks punishes UDP fan-out
// per host, so a single shared pool across all targets is conservative
// by design.
type UDPScanner struct {
	*Scanner
	serviceProbes map[uint16][]byte
	customProbes  map[uint16][]byte
	probeStats    map[uint16]ProbeStats
}

// ProbeStats tracks how many probes were sent to a port and how many
// drew a UDP reply. Responses and Successes are both incremented on
// every reply, so the two counts are always equal.
type ProbeStats struct {
	Sent      int
	Responses int
	Successes int
}

// NewUDPScanner builds a UDPScanner sharing cfg with the embedded
// Scanner, preloaded with the standard per-port probe table.
func NewUDPScanner(cfg *Config) *UDPScanner {
	return &UDPScanner{
		Scanner:       NewScanner(cfg),
		serviceProbes: initUDPProbes(),
		customProbes:  make(map[uint16][]byte),
		probeStats:    make(map[uint16]ProbeStats),
	}
}

// ScanRange scans a single host, satisfying PortScanner.
func (s *UDPScanner) ScanRange(ctx context.Context, host string, ports []uint16) {
	s.ScanTargets(ctx, []ScanTarget{{Host: host, Ports: ports}})
}

// initUDPProbes seeds the standard per-port probe table from the
// detectors package's crafted payloads, so the fingerprinter
// (detectors.UDPProbeForPort) and the scanner's probe dispatch always
// agree on what gets sent to a given port.
func initUDPProbes() map[uint16][]byte {
	return detectors.AllUDPProbes()
}

// udpWorker pulls jobs off the shared queue udp_runner.go feeds, with a
// small random jitter between probes so repeated UDP sends don't trip
// ICMP rate limiting on the target.
func (s *UDPScanner) udpWorker(ctx context.Context, jobs <-chan scanJob) {
	defer s.wg.Done()

	rng := rand.New(rand.NewSource(int64(s.config.UDPJitterMaxMs) + 1))

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}

			if s.rateTicker != nil {
				select {
				case <-ctx.Done():
					return
				case <-s.rateTicker.C:
					jitter := time.Duration(rng.Intn(s.config.UDPJitterMaxMs)) * time.Millisecond
					time.Sleep(jitter)
				}
			}

			s.scanUDPPort(ctx, job.host, job.port)
		}
	}
}

// scanUDPPort probes a single UDP port with its service-specific probe
// (or an empty datagram), classifies the response via probes.go's
// ICMP-aware UDPScan, and emits one ResultEvent.
func (s *UDPScanner) scanUDPPort(ctx context.Context, host string, port uint16) {
	if status, svc, ok := s.cache.Get(host, port, TechniqueUDP); ok {
		s.emitUDPResult(ctx, host, port, status, 0, "", svc)
		return
	}

	probe := s.getProbeForPort(port)

	status, duration, response := udpScanWithProbe(ctx, host, port, s.config.UDPReadTimeout, probe)
	if ctx.Err() != nil {
		return
	}

	s.recordProbeAttempt(port, status == StatusOpen)

	var banner string
	if status == StatusOpen && len(response) > 0 && s.config.BannerGrab {
		banner = s.parseUDPResponse(port, response)
	}

	s.cache.Put(host, port, status, nil, TechniqueUDP)
	s.emitUDPResult(ctx, host, port, status, duration, banner, nil)
}

func (s *UDPScanner) emitUDPResult(ctx context.Context, host string, port uint16, status PortStatus, duration time.Duration, banner string, svc *ServiceInfo) {
	event := NewResultEvent(ResultEvent{
		Host:      host,
		Port:      port,
		Status:    status,
		Filtered:  status == StatusFiltered,
		Duration:  duration,
		Service:   svc,
		Technique: TechniqueUDP,
		Banner:    banner,
	})
	select {
	case s.results <- event:
		s.progressReporter.IncrementCompleted()
	case <-ctx.Done():
	}
}

// udpScanWithProbe is UDPScan (probes.go) generalized to send a
// service-specific payload instead of always sending an empty
// datagram, so per-port crafted probes can provoke an identifying
// reply during fingerprinting.
func udpScanWithProbe(ctx context.Context, target string, port uint16, timeout time.Duration, probe []byte) (PortStatus, time.Duration, []byte) {
	start := time.Now()
	address := net.JoinHostPort(target, strconv.Itoa(int(port)))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "udp", address)
	if err != nil {
		return StatusFiltered, time.Since(start), nil
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(probe); err != nil {
		return StatusFiltered, time.Since(start), nil
	}

	buf := make([]byte, DefaultUDPBufferSize)
	n, err := conn.Read(buf)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return StatusFiltered, duration, nil
		}
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return StatusFiltered, duration, nil
		}
		return classifyUDPError(err), duration, nil
	}
	return StatusOpen, duration, buf[:n]
}

// getProbeForPort returns a custom probe if one was registered for
// port, else the standard service probe, else an empty datagram.
func (s *UDPScanner) getProbeForPort(port uint16) []byte {
	if probe, ok := s.customProbes[port]; ok {
		return probe
	}
	if probe, ok := s.serviceProbes[port]; ok {
		return probe
	}
	return []byte{}
}

// AddCustomProbe registers a probe payload that overrides the standard
// one for port.
func (s *UDPScanner) AddCustomProbe(port uint16, probe []byte) {
	s.customProbes[port] = probe
}

// GetProbeStats returns the accumulated send/response/success counts
// per port.
func (s *UDPScanner) GetProbeStats() map[uint16]ProbeStats {
	return s.probeStats
}

func (s *UDPScanner) recordProbeAttempt(port uint16, success bool) {
	stats := s.probeStats[port]
	stats.Sent++
	if success {
		stats.Responses++
		stats.Successes++
	}
	s.probeStats[port] = stats
}

