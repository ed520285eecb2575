package core

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/cryptobyte"

	"github.com/exec/portscope/internal/core/detectors"
)

// Fingerprinter runs the four-phase service identification pipeline
// against a single open port (§4.5): standard probes, authentication
// testing, hail-mary probing, and a catch-all response classifier.
// Grounded on original_source/src/scanner/aggressive_probing.rs's
// aggressively_probe_service phase order and response_analyzer.rs's
// binary/text heuristics.
type Fingerprinter struct {
	parallel *ParallelDetector
	adaptive *AdaptiveServiceDetector
}

// NewFingerprinter builds a fingerprinter sharing the standard
// detector registry and adaptive probe battery.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{
		parallel: NewParallelDetector(),
		adaptive: NewAdaptiveServiceDetector(),
	}
}

// Fingerprint identifies the service behind target:port, escalating
// through phases only while confidence remains low.
func (f *Fingerprinter) Fingerprint(ctx context.Context, target string, port uint16) *ServiceInfo {
	info := f.phaseOne(ctx, target, port)

	if info.Confidence < FingerprintPhase2Threshold {
		info = f.phaseTwoAuth(ctx, target, port, info)
	}

	if info.Confidence < FingerprintPhase3Threshold {
		info = f.phaseThreeHailMary(ctx, target, port, info)
	}

	if info.Name == "" || info.Name == "unknown" {
		return nil
	}
	return info
}

// phaseOne runs TLS detection, the BitTorrent handshake check, the
// P2P-port behavioral heuristic, and the standard detector registries
// (parallel + adaptive), in that priority order.
func (f *Fingerprinter) phaseOne(ctx context.Context, target string, port uint16) *ServiceInfo {
	result := &ServiceInfo{Name: "unknown"}

	if tlsInfo, ok := f.probeTLS(ctx, target, port); ok {
		result = tlsInfo
		if result.Confidence > FingerprintTLSEarlyExit {
			return result
		}
	}

	if btInfo, ok := f.probeBitTorrent(ctx, target, port); ok {
		return btInfo
	}

	if f.isPotentialP2PPort(ctx, target, port) {
		return &ServiceInfo{Name: "Unknown service (possible P2P)", Confidence: 0.5}
	}

	if svc, ok := f.parallel.Detect(ctx, target, port); ok && svc.Confidence > result.Confidence {
		result = svc
		if result.Confidence > FingerprintPhase2EarlyExit {
			return result
		}
	}

	if svc, ok := f.adaptive.Detect(ctx, target, port); ok && svc.Confidence > result.Confidence {
		result = svc
	}

	return result
}

// phaseTwoAuth grabs an authenticated-looking response (HTTP Basic
// Auth on web ports, SSH banner, FTP login) and bumps confidence when
// the response carries a recognizable auth challenge or a bypass
// indicator — mirroring test_authentication's +0.4 / +0.2 bumps.
func (f *Fingerprinter) phaseTwoAuth(ctx context.Context, target string, port uint16, info *ServiceInfo) *ServiceInfo {
	response, ok := f.probeAuth(ctx, target, port)
	if !ok || len(response) == 0 {
		return info
	}
	s := strings.ToLower(string(response))

	switch {
	case strings.Contains(s, "401"), strings.Contains(s, "unauthorized"), strings.Contains(s, "www-authenticate"), strings.Contains(s, "basic realm"),
		strings.Contains(s, "password:"), strings.Contains(s, "permission denied"), strings.Contains(s, "authentication failed"), strings.Contains(s, "invalid user"),
		strings.Contains(s, "530"), strings.Contains(s, "login incorrect"), strings.Contains(s, "password required"):
		if info.Name == "" || info.Name == "unknown" {
			info.Name = "Auth-Protected-Service"
		}
		info.Confidence = clampConfidence(info.Confidence + 0.4)
	case strings.Contains(s, "200"), strings.Contains(s, "welcome"), strings.Contains(s, "ok"):
		if info.Name == "" || info.Name == "unknown" {
			info.Name = "Auth-Bypass-Service"
		}
		info.Confidence = clampConfidence(info.Confidence + 0.2)
	}
	return info
}

// phaseThreeHailMary fires every registered detector's probe payloads
// plus a handful of generic fallback probes, classifying each
// response with the catch-all analyzer and keeping the best match.
func (f *Fingerprinter) phaseThreeHailMary(ctx context.Context, target string, port uint16, info *ServiceInfo) *ServiceInfo {
	probes := make([][]byte, 0, 32)
	for _, d := range detectors.All() {
		probes = append(probes, d.ProbePayloads()...)
	}
	probes = append(probes,
		[]byte("HELO\r\n"),
		[]byte("CONNECT\r\n"),
		[]byte("QUIT\r\n"),
		[]byte{0x00, 0x01, 0x02, 0x03},
		[]byte{0xFF, 0xFE, 0xFD, 0xFC},
		[]byte{0x12, 0x34, 0x56, 0x78},
	)

	best := info
	for _, probe := range probes {
		response, ok := f.rawProbe(ctx, target, port, probe)
		if !ok {
			continue
		}
		if name, confidence, ok := classifyUnknownResponse(response); ok && confidence > best.Confidence {
			best = &ServiceInfo{Name: name, Confidence: confidence}
		}
	}
	return best
}

func clampConfidence(c float32) float32 {
	if c > 1.0 {
		return 1.0
	}
	return c
}

// probeTLS sends a minimal TLS Client Hello and, on a Server Hello
// response, labels the negotiated version and guesses the wrapped
// service from the port number (no certificate is parsed).
func (f *Fingerprinter) probeTLS(ctx context.Context, target string, port uint16) (*ServiceInfo, bool) {
	response, ok := f.rawProbe(ctx, target, port, buildMinimalTLSClientHello())
	if !ok {
		return nil, false
	}

	versionMajor, versionMinor, ok := parseTLSServerHelloVersion(response)
	if !ok {
		return nil, false
	}

	var label string
	var confidence float32
	switch {
	case versionMajor == 0x03 && versionMinor == 0x00:
		label, confidence = "SSL 3.0 (insecure)", 0.95
	case versionMajor == 0x03 && versionMinor == 0x01:
		label, confidence = "TLS 1.0 (deprecated)", 0.90
	case versionMajor == 0x03 && versionMinor == 0x02:
		label, confidence = "TLS 1.1 (deprecated)", 0.90
	case versionMajor == 0x03 && versionMinor == 0x03:
		label, confidence = "TLS 1.2", 0.85
	case versionMajor == 0x03 && versionMinor == 0x04:
		label, confidence = "TLS 1.3", 0.85
	default:
		label, confidence = "Unknown TLS version", 0.75
	}

	service := tlsServiceForPort(port)
	return &ServiceInfo{
		Name:       service,
		Version:    label,
		Confidence: confidence,
	}, true
}

// parseTLSServerHelloVersion walks the TLS record header and
// Handshake.ServerHello header with cryptobyte rather than hand-rolled
// fixed offsets, returning the ServerHello's server_version field (the
// record-layer version is read and skipped).
func parseTLSServerHelloVersion(response []byte) (major, minor byte, ok bool) {
	s := cryptobyte.String(response)

	var contentType uint8
	if !s.ReadUint8(&contentType) || contentType != 0x16 {
		return 0, 0, false
	}
	var recordVersion uint16
	if !s.ReadUint16(&recordVersion) {
		return 0, 0, false
	}
	var recordLen uint16
	if !s.ReadUint16(&recordLen) {
		return 0, 0, false
	}

	var handshakeType uint8
	if !s.ReadUint8(&handshakeType) || handshakeType != 0x02 {
		return 0, 0, false
	}
	var handshakeLen uint32
	if !s.ReadUint24(&handshakeLen) {
		return 0, 0, false
	}
	var serverVersion uint16
	if !s.ReadUint16(&serverVersion) {
		return 0, 0, false
	}
	return byte(serverVersion >> 8), byte(serverVersion), true
}

func tlsServiceForPort(port uint16) string {
	switch port {
	case 443, 8443:
		return "HTTPS"
	case 993:
		return "IMAPS"
	case 995:
		return "POP3S"
	case 465, 587:
		return "SMTPS"
	case 636:
		return "LDAPS"
	case 989, 990:
		return "FTPS"
	case 6697:
		return "IRC-over-SSL"
	case 22000:
		return "Syncthing-TLS"
	default:
		return "Unknown-TLS-Service"
	}
}

// probeBitTorrent sends a BitTorrent handshake and checks for a
// matching handshake echoed back.
func (f *Fingerprinter) probeBitTorrent(ctx context.Context, target string, port uint16) (*ServiceInfo, bool) {
	handshake := make([]byte, 0, 68)
	handshake = append(handshake, detectors.BitTorrentHandshakePrefix...)
	handshake = append(handshake, make([]byte, 8)...)
	handshake = append(handshake, make([]byte, 20)...)
	handshake = append(handshake, []byte("-PORTSCOPE-00000000-")...)

	response, ok := f.rawProbe(ctx, target, port, handshake)
	if !ok || len(response) < 28 {
		return nil, false
	}
	if response[0] == 19 && string(response[1:20]) == "BitTorrent protocol" {
		return &ServiceInfo{Name: "qBittorrent/BitTorrent", Confidence: 0.95}, true
	}
	s := strings.ToLower(string(response))
	if strings.Contains(s, "torrent") || strings.Contains(s, "peer") {
		return &ServiceInfo{Name: "BitTorrent-like", Confidence: 0.7}, true
	}
	return nil, false
}

// isPotentialP2PPort flags a port as behaviorally BitTorrent-like:
// accepts a connection, immediately closes on an invalid-protocol
// probe, and falls within a common BitTorrent secondary range.
func (f *Fingerprinter) isPotentialP2PPort(ctx context.Context, target string, port uint16) bool {
	if !isCommonBitTorrentPortRange(port) {
		return false
	}
	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))
	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte("INVALID_PROTOCOL_TEST\n")); err != nil {
		return true
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	return err != nil || n == 0
}

func isCommonBitTorrentPortRange(port uint16) bool {
	return (port >= 6881 && port <= 6889) || (port >= 7000 && port <= 7999) || (port >= 8000 && port <= 8999)
}

// probeAuth picks an auth-revealing probe by port and reads the
// response. Web ports get an HTTP request with Basic Auth, port 21 gets
// an FTP USER/PASS login; everything else falls back to a plain banner
// read.
func (f *Fingerprinter) probeAuth(ctx context.Context, target string, port uint16) ([]byte, bool) {
	switch port {
	case 80, 8080, 8000, 443, 8443:
		return f.rawProbe(ctx, target, port, []byte("GET / HTTP/1.1\r\nHost: "+target+"\r\nAuthorization: Basic dGVzdDp0ZXN0\r\n\r\n"))
	case 21:
		return f.rawProbe(ctx, target, port, []byte("USER test\r\nPASS test\r\n"))
	default:
		return f.rawProbe(ctx, target, port, nil)
	}
}

// rawProbe connects, optionally writes a payload, and reads whatever
// comes back within the adaptive probe timeout.
func (f *Fingerprinter) rawProbe(ctx context.Context, target string, port uint16, payload []byte) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, AdaptiveProbeTimeout)
	defer cancel()

	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, false
	}
	defer func() { _ = conn.Close() }()

	if len(payload) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(AdaptiveProbeTimeout))
		if _, err := conn.Write(payload); err != nil {
			return nil, false
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(AdaptiveProbeTimeout))
	buf := make([]byte, MaxProbeResponseBytes)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return nil, false
	}
	return buf[:n], true
}

// classifyUnknownResponse is the catch-all phase-four analyzer: run
// every registered detector against the response, then fall back to
// a binary-vs-text heuristic. Grounded on response_analyzer.rs's
// is_binary_data / detect_service_from_signatures.
func classifyUnknownResponse(response []byte) (string, float32, bool) {
	if len(response) == 0 {
		return "", 0, false
	}
	if result, matched := detectors.Classify(response); matched {
		return result.ServiceName, result.Confidence, true
	}

	s := strings.ToLower(string(response))
	switch {
	case strings.Contains(s, "ssh") || strings.Contains(s, "openssh"):
		return "SSH", 0.7, true
	case strings.Contains(s, "http/") || strings.Contains(s, "server:"):
		return "HTTP", 0.7, true
	case strings.Contains(s, "ftp"):
		return "FTP", 0.65, true
	}

	if isBinaryData(response) {
		return "Unknown-Binary-Protocol", 0.3, true
	}
	if isASCIIBanner(s) {
		return "Unknown-Text-Protocol", 0.3, true
	}
	return "", 0, false
}

// isBinaryData flags a response as binary when more than 10% of its
// bytes are non-printable control characters.
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range data {
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.1
}

// isASCIIBanner checks whether the first line of a response looks
// like a typical service banner line.
func isASCIIBanner(s string) bool {
	idx := strings.IndexAny(s, "\r\n")
	line := s
	if idx >= 0 {
		line = s[:idx]
	}
	if len(line) <= 10 || len(line) >= 200 {
		return false
	}
	for _, c := range []byte(line) {
		if c >= 128 {
			return false
		}
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && !bytes.ContainsRune([]byte(" .-_/()[]"), rune(c)) {
			return false
		}
	}
	return true
}
