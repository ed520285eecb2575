package core

import (
	"context"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/exec/portscope/internal/core/detectors"
)

// ParallelDetector fires every registered detector's probe payloads at
// a single open port concurrently and keeps the highest-confidence
// match (§4.3). Grounded on original_source/src/scanner/parallel_detector.rs,
// generalized from its hardcoded 3-detector list to the full registry.
type ParallelDetector struct {
	maxConcurrent int
	probeTimeout  time.Duration
}

// NewParallelDetector builds a detector with the spec's default
// concurrency and per-probe timeout (§4.3 constants).
func NewParallelDetector() *ParallelDetector {
	return &ParallelDetector{
		maxConcurrent: DetectorSemaphoreWidth,
		probeTimeout:  DetectorProbeTimeout,
	}
}

type probeOutcome struct {
	result     detectors.Result
	matched    bool
	confidence float32
}

// Detect probes target:port with every registered detector's payloads
// concurrently, bounded to maxConcurrent in flight via errgroup, and
// returns the single best ServiceInfo across all matches.
func (p *ParallelDetector) Detect(ctx context.Context, target string, port uint16) (*ServiceInfo, bool) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.maxConcurrent)

	outcomes := make(chan probeOutcome, 64)

	for _, d := range detectors.All() {
		d := d
		payloads := d.ProbePayloads()
		if len(payloads) == 0 {
			payloads = [][]byte{nil}
		}
		for _, payload := range payloads {
			payload := payload
			group.Go(func() error {
				response, ok := p.executeProbe(gctx, target, port, payload)
				if !ok {
					return nil
				}
				if result, matched := d.Classify(response); matched {
					outcomes <- probeOutcome{result: result, matched: true, confidence: result.Confidence}
				}
				return nil
			})
		}
	}

	go func() {
		_ = group.Wait()
		close(outcomes)
	}()

	var best probeOutcome
	found := false
	for o := range outcomes {
		if !found || o.confidence > best.confidence {
			best = o
			found = true
		}
	}

	if !found {
		return nil, false
	}
	return &ServiceInfo{
		Name:       best.result.ServiceName,
		Version:    sanitizeText(best.result.Version, bannerMaxRunes),
		Confidence: best.result.Confidence,
	}, true
}

func (p *ParallelDetector) executeProbe(ctx context.Context, target string, port uint16, payload []byte) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, false
	}
	defer func() { _ = conn.Close() }()

	if len(payload) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(p.probeTimeout))
		if _, err := conn.Write(payload); err != nil {
			return nil, false
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(p.probeTimeout))
	buf := make([]byte, MaxProbeResponseBytes)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return nil, false
	}
	return buf[:n], true
}
