package core

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// serviceProbe is a port-agnostic probe: send probeData (if any), then
// check the response against expectedPatterns. Grounded on
// original_source/src/scanner/adaptive_service_detector.rs's ServiceProbe.
type serviceProbe struct {
	name               string
	probeData          []byte
	expectedPatterns   [][]byte
	confidenceIfMatch  float32
}

// serviceSignature refines a probe match to a concrete product name.
type serviceSignature struct {
	pattern     []byte
	serviceName string
	confidence  float32
}

// AdaptiveServiceDetector tries a fixed battery of protocol probes
// against a port regardless of which port number it is (§4.4) —
// useful when a service runs on a non-standard port.
type AdaptiveServiceDetector struct {
	probes     []serviceProbe
	signatures map[string][]serviceSignature
}

// NewAdaptiveServiceDetector builds the detector with its fixed probe
// and signature tables.
func NewAdaptiveServiceDetector() *AdaptiveServiceDetector {
	d := &AdaptiveServiceDetector{
		signatures: make(map[string][]serviceSignature),
	}
	d.loadProbes()
	d.loadSignatures()
	return d
}

func (d *AdaptiveServiceDetector) loadProbes() {
	d.probes = []serviceProbe{
		{
			name:              "HTTP-GET",
			probeData:         []byte("GET / HTTP/1.1\r\nHost: test\r\nUser-Agent: portscope\r\n\r\n"),
			expectedPatterns:  [][]byte{[]byte("HTTP/"), []byte("Content-Type"), []byte("Server:")},
			confidenceIfMatch: 0.9,
		},
		{
			name:              "TLS-ClientHello",
			probeData:         buildMinimalTLSClientHello(),
			expectedPatterns:  [][]byte{{0x16, 0x03}, {0x15, 0x03}},
			confidenceIfMatch: 0.95,
		},
		{
			name:              "SSH-Version",
			expectedPatterns:  [][]byte{[]byte("SSH-"), []byte("OpenSSH")},
			confidenceIfMatch: 0.95,
		},
		{
			name:              "FTP-Banner",
			expectedPatterns:  [][]byte{[]byte("220"), []byte("FTP"), []byte("FileZilla"), []byte("vsftpd")},
			confidenceIfMatch: 0.9,
		},
		{
			name:              "SMTP-EHLO",
			probeData:         []byte("EHLO test.local\r\n"),
			expectedPatterns:  [][]byte{[]byte("250"), []byte("SMTP"), []byte("ESMTP")},
			confidenceIfMatch: 0.9,
		},
		{
			name:              "MySQL-Handshake",
			expectedPatterns:  [][]byte{{0x0a}, []byte("mysql_native_password")},
			confidenceIfMatch: 0.9,
		},
		{
			name:              "PostgreSQL-StartupMessage",
			probeData:         []byte{0x00, 0x00, 0x00, 0x08, 0x04, 0xd2, 0x16, 0x2f},
			expectedPatterns:  [][]byte{[]byte("S"), []byte("N")},
			confidenceIfMatch: 0.85,
		},
		{
			name:              "Redis-PING",
			probeData:         []byte("*1\r\n$4\r\nPING\r\n"),
			expectedPatterns:  [][]byte{[]byte("+PONG"), []byte("-NOAUTH"), []byte("-ERR")},
			confidenceIfMatch: 0.9,
		},
		{
			name:              "Banner-Grab",
			confidenceIfMatch: 0.3,
		},
	}
}

func (d *AdaptiveServiceDetector) loadSignatures() {
	d.signatures["HTTP"] = []serviceSignature{
		{pattern: []byte("Apache"), serviceName: "Apache HTTP Server", confidence: 0.9},
		{pattern: []byte("nginx"), serviceName: "nginx", confidence: 0.9},
		{pattern: []byte("IIS"), serviceName: "Microsoft IIS", confidence: 0.9},
		{pattern: []byte("lighttpd"), serviceName: "lighttpd", confidence: 0.9},
	}
	d.signatures["SSH"] = []serviceSignature{
		{pattern: []byte("OpenSSH"), serviceName: "OpenSSH", confidence: 0.95},
		{pattern: []byte("dropbear"), serviceName: "Dropbear SSH", confidence: 0.95},
	}
}

type adaptiveProbeResult struct {
	name       string
	response   []byte
	matched    bool
	confidence float32
}

// Detect runs the full probe battery concurrently and returns the
// best match if its confidence clears AdaptiveDetectorConfidenceFloor.
func (d *AdaptiveServiceDetector) Detect(ctx context.Context, target string, port uint16) (*ServiceInfo, bool) {
	group, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make([]adaptiveProbeResult, 0, len(d.probes))

	for _, probe := range d.probes {
		probe := probe
		group.Go(func() error {
			r := d.executeProbe(gctx, target, port, probe)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	var best adaptiveProbeResult
	found := false
	for _, r := range results {
		if !r.matched {
			continue
		}
		if !found || r.confidence > best.confidence {
			best = r
			found = true
		}
	}

	if !found || best.confidence <= AdaptiveDetectorConfidenceFloor {
		return nil, false
	}

	return &ServiceInfo{
		Name:       best.name,
		Version:    d.extractVersion(best.response, best.name),
		Confidence: best.confidence,
	}, true
}

func (d *AdaptiveServiceDetector) executeProbe(ctx context.Context, target string, port uint16, probe serviceProbe) adaptiveProbeResult {
	ctx, cancel := context.WithTimeout(ctx, AdaptiveProbeTimeout)
	defer cancel()

	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return adaptiveProbeResult{name: probe.name}
	}
	defer func() { _ = conn.Close() }()

	if len(probe.probeData) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(AdaptiveProbeTimeout))
		if _, err := conn.Write(probe.probeData); err != nil {
			return adaptiveProbeResult{name: probe.name}
		}
		time.Sleep(AdaptiveBannerWait / 5)
	} else {
		// Services that speak first (SSH, FTP, MySQL) get the full
		// banner wait before the read deadline below.
		_ = conn.SetReadDeadline(time.Now().Add(AdaptiveBannerWait))
	}

	_ = conn.SetReadDeadline(time.Now().Add(AdaptiveProbeTimeout))
	buf := make([]byte, MaxProbeResponseBytes)
	n, _ := conn.Read(buf)
	response := buf[:n]

	if probe.name == "Banner-Grab" {
		if len(response) > 0 {
			return adaptiveProbeResult{name: "Unknown-Banner", response: response, matched: true, confidence: probe.confidenceIfMatch}
		}
		return adaptiveProbeResult{name: probe.name}
	}

	for _, pattern := range probe.expectedPatterns {
		if bytes.Contains(response, pattern) {
			return adaptiveProbeResult{name: d.serviceNameFor(probe.name), response: response, matched: true, confidence: probe.confidenceIfMatch}
		}
	}
	return adaptiveProbeResult{name: probe.name, response: response}
}

// serviceNameFor strips the probe's technique suffix ("-GET", "-EHLO",
// ...) down to a protocol family key used to look up refined
// signatures, mirroring the original's probe-name-as-category pattern.
func (d *AdaptiveServiceDetector) serviceNameFor(probeName string) string {
	switch probeName {
	case "HTTP-GET":
		return "HTTP"
	case "SSH-Version":
		return "SSH"
	case "FTP-Banner":
		return "FTP"
	case "SMTP-EHLO":
		return "SMTP"
	case "MySQL-Handshake":
		return "MySQL"
	case "PostgreSQL-StartupMessage":
		return "PostgreSQL"
	case "Redis-PING":
		return "Redis"
	case "TLS-ClientHello":
		return "TLS"
	default:
		return probeName
	}
}

func (d *AdaptiveServiceDetector) extractVersion(response []byte, serviceName string) string {
	sigs, ok := d.signatures[serviceName]
	if !ok {
		return ""
	}
	for _, sig := range sigs {
		if bytes.Contains(response, sig.pattern) {
			return sig.serviceName
		}
	}
	return ""
}

// buildMinimalTLSClientHello constructs a bare-minimum TLS 1.2 Client
// Hello record for the adaptive probe battery. The real handshake
// parsing lives in fingerprint.go's TLS phase.
func buildMinimalTLSClientHello() []byte {
	handshake := []byte{
		0x01,             // ClientHello
		0x00, 0x00, 0x00, // length placeholder
		0x03, 0x03, // TLS 1.2
	}
	random := make([]byte, 32)
	handshake = append(handshake, random...)
	handshake = append(handshake, 0x00) // session ID length
	handshake = append(handshake, 0x00, 0x02, 0x00, 0x2f) // cipher suites (1): TLS_RSA_WITH_AES_128_CBC_SHA
	handshake = append(handshake, 0x01, 0x00)             // compression methods: null

	body := handshake[4:]
	bodyLen := len(body)
	handshake[1] = byte(bodyLen >> 16)
	handshake[2] = byte(bodyLen >> 8)
	handshake[3] = byte(bodyLen)

	record := []byte{0x16, 0x03, 0x01, byte(len(handshake) >> 8), byte(len(handshake))}
	record = append(record, handshake...)
	return record
}
