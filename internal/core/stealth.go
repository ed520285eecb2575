package core

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// TCP flag bits, matching the values pnet's TcpFlags exposes in the
// original (tcp.rs).
const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagRST = 0x04
	tcpFlagPSH = 0x08
	tcpFlagACK = 0x10
	tcpFlagURG = 0x20
)

// HasRawSocketPrivilege reports whether the process can open raw IP
// sockets. Stealth techniques fall back to ConnectScan (SYN) or
// StatusError (FIN/XMAS/NULL) when this is false (§4.1, §7).
func HasRawSocketPrivilege() bool {
	return unix.Geteuid() == 0
}

// rawTCPHeader is the 20-byte fixed TCP header, laid out field-for-field
// the way tcp.rs's MutableTcpPacket does.
type rawTCPHeader struct {
	srcPort    uint16
	dstPort    uint16
	seq        uint32
	ack        uint32
	dataOffset uint8 // header length in 32-bit words; 5 for no options
	flags      uint8
	window     uint16
	checksum   uint16
	urgentPtr  uint16
}

func (h rawTCPHeader) marshal() []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint16(buf[0:2], h.srcPort)
	binary.BigEndian.PutUint16(buf[2:4], h.dstPort)
	binary.BigEndian.PutUint32(buf[4:8], h.seq)
	binary.BigEndian.PutUint32(buf[8:12], h.ack)
	buf[12] = h.dataOffset << 4
	buf[13] = h.flags
	binary.BigEndian.PutUint16(buf[14:16], h.window)
	binary.BigEndian.PutUint16(buf[16:18], h.checksum)
	binary.BigEndian.PutUint16(buf[18:20], h.urgentPtr)
	return buf
}

// tcpChecksum computes the TCP checksum over a pseudo-header (source,
// dest, zero, protocol, tcp length) followed by the segment itself,
// mirroring pnet::packet::tcp::ipv4_checksum.
func tcpChecksum(src, dst net.IP, segment []byte) uint16 {
	src4 := src.To4()
	dst4 := dst.To4()

	pseudo := make([]byte, 12+len(segment))
	copy(pseudo[0:4], src4)
	copy(pseudo[4:8], dst4)
	pseudo[8] = 0
	pseudo[9] = 6 // IPPROTO_TCP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(segment)))
	copy(pseudo[12:], segment)

	if len(pseudo)%2 == 1 {
		pseudo = append(pseudo, 0)
	}

	var sum uint32
	for i := 0; i < len(pseudo); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(pseudo[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

func buildSYNProbe(srcPort, dstPort uint16, seq uint32, flags uint8, srcIP, dstIP net.IP) []byte {
	h := rawTCPHeader{
		srcPort:    srcPort,
		dstPort:    dstPort,
		seq:        seq,
		ack:        0,
		dataOffset: 5,
		flags:      flags,
		window:     65535,
		urgentPtr:  0,
	}
	segment := h.marshal()
	h.checksum = tcpChecksum(srcIP, dstIP, segment)
	return h.marshal()
}

// rawScanner owns one raw IP socket per process and demultiplexes
// inbound TCP segments to waiting probes by (dstIP, srcPort, dstPort)
// key, per spec §9's shared-demultiplexer redesign note (the original
// Rust implementation opens a fresh transport_channel per call).
type rawScanner struct {
	mu      sync.Mutex
	conn    *ipv4.RawConn
	waiters map[rawWaitKey]chan rawSegment
	once    sync.Once
	initErr error
}

type rawWaitKey struct {
	dstIP    string
	srcPort  uint16
	dstPort  uint16
}

type rawSegment struct {
	flags uint8
}

var sharedRawScanner = &rawScanner{}

func (s *rawScanner) ensureStarted() error {
	s.once.Do(func() {
		packetConn, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
		if err != nil {
			s.initErr = fmt.Errorf("raw socket: %w", err)
			return
		}
		rawConn, err := ipv4.NewRawConn(packetConn)
		if err != nil {
			s.initErr = fmt.Errorf("raw conn: %w", err)
			return
		}
		s.conn = rawConn
		s.waiters = make(map[rawWaitKey]chan rawSegment)
		go s.receiveLoop()
	})
	return s.initErr
}

func (s *rawScanner) receiveLoop() {
	buf := make([]byte, 4096)
	for {
		header, payload, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		if len(payload) < 20 {
			continue
		}
		srcPort := binary.BigEndian.Uint16(payload[0:2])
		dstPort := binary.BigEndian.Uint16(payload[2:4])
		flags := payload[13]

		key := rawWaitKey{dstIP: header.Src.String(), srcPort: dstPort, dstPort: srcPort}
		s.mu.Lock()
		ch, ok := s.waiters[key]
		s.mu.Unlock()
		if ok {
			select {
			case ch <- rawSegment{flags: flags}:
			default:
			}
		}
	}
}

func (s *rawScanner) register(key rawWaitKey) chan rawSegment {
	ch := make(chan rawSegment, 4)
	s.mu.Lock()
	s.waiters[key] = ch
	s.mu.Unlock()
	return ch
}

func (s *rawScanner) unregister(key rawWaitKey) {
	s.mu.Lock()
	delete(s.waiters, key)
	s.mu.Unlock()
}

// RawScan sends a single crafted TCP segment with the given flag set
// and classifies the response per spec §4.1's stealth-scan rules: a
// SYN+ACK means Open, an RST means Closed, and (per the spec's current
// invariant, left unchanged — see SPEC_FULL.md §D) silence on any
// technique other than plain SYN is reported as Open rather than
// Filtered, mirroring tcp.rs's perform_raw_scan.
func RawScan(ctx context.Context, target string, port uint16, timeout time.Duration, flags uint8) (PortStatus, time.Duration) {
	start := time.Now()

	if err := sharedRawScanner.ensureStarted(); err != nil {
		return StatusError, time.Since(start)
	}

	dstIP := net.ParseIP(target)
	if dstIP == nil {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", target)
		if err != nil || len(ips) == 0 {
			return StatusError, time.Since(start)
		}
		dstIP = ips[0]
	}
	dstIP = dstIP.To4()
	if dstIP == nil {
		// IPv6 raw scanning is a spec Non-goal.
		return StatusError, time.Since(start)
	}

	srcPort := uint16(32768 + rand.Intn(32768))
	seq := rand.Uint32()

	localAddr := sharedRawScanner.localIPv4()
	segment := buildSYNProbe(srcPort, port, seq, flags, localAddr, dstIP)

	iph := &ipv4.Header{
		Version:  4,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(segment),
		TTL:      64,
		Protocol: 6, // TCP
		Dst:      dstIP,
	}

	key := rawWaitKey{dstIP: dstIP.String(), srcPort: srcPort, dstPort: port}
	waitCh := sharedRawScanner.register(key)
	defer sharedRawScanner.unregister(key)

	if err := sharedRawScanner.conn.WriteTo(iph, segment, nil); err != nil {
		return StatusError, time.Since(start)
	}

	deadline := time.After(timeout)
	for {
		select {
		case seg := <-waitCh:
			if seg.flags&tcpFlagSYN != 0 && seg.flags&tcpFlagACK != 0 {
				return StatusOpen, time.Since(start)
			}
			if seg.flags&tcpFlagRST != 0 {
				return StatusClosed, time.Since(start)
			}
			// Any other response to a non-SYN probe is treated the
			// same as silence below.
		case <-deadline:
			if flags == tcpFlagSYN {
				return StatusFiltered, time.Since(start)
			}
			// FIN/XMAS/NULL: RFC 793 says a closed port replies RST
			// and an open port stays silent, so silence reads as
			// Open here (kept unchanged per SPEC_FULL.md §D).
			return StatusOpen, time.Since(start)
		case <-ctx.Done():
			return StatusError, time.Since(start)
		}
	}
}

// localIPv4 resolves a best-effort local source address for checksum
// computation. The kernel rewrites the IP header's source on send
// when IP_HDRINCL semantics leave it zeroed, but the TCP checksum
// still needs a plausible local address; tcp.rs has the same caveat
// (it hardcodes 127.0.0.1 "will be replaced by kernel").
func (s *rawScanner) localIPv4() net.IP {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer func() { _ = conn.Close() }()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return net.IPv4(127, 0, 0, 1)
	}
	return addr.IP.To4()
}

// SynScan falls back to ConnectScan when raw sockets are unavailable,
// matching tcp.rs's syn_scan.
func SynScan(ctx context.Context, target string, port uint16, timeoutMs int) (PortStatus, time.Duration) {
	if !HasRawSocketPrivilege() {
		return ConnectScan(ctx, target, port, time.Duration(timeoutMs)*time.Millisecond)
	}
	return RawScan(ctx, target, port, time.Duration(timeoutMs)*time.Millisecond, tcpFlagSYN)
}

// FinScan requires raw-socket privilege; without it every port comes
// back Error rather than silently downgrading (§4.1, §7).
func FinScan(ctx context.Context, target string, port uint16, timeoutMs int) (PortStatus, time.Duration) {
	if !HasRawSocketPrivilege() {
		return StatusError, 0
	}
	return RawScan(ctx, target, port, time.Duration(timeoutMs)*time.Millisecond, tcpFlagFIN)
}

// XmasScan sets FIN, PSH and URG simultaneously.
func XmasScan(ctx context.Context, target string, port uint16, timeoutMs int) (PortStatus, time.Duration) {
	if !HasRawSocketPrivilege() {
		return StatusError, 0
	}
	flags := uint8(tcpFlagFIN | tcpFlagPSH | tcpFlagURG)
	return RawScan(ctx, target, port, time.Duration(timeoutMs)*time.Millisecond, flags)
}

// NullScan sets no TCP flags at all.
func NullScan(ctx context.Context, target string, port uint16, timeoutMs int) (PortStatus, time.Duration) {
	if !HasRawSocketPrivilege() {
		return StatusError, 0
	}
	return RawScan(ctx, target, port, time.Duration(timeoutMs)*time.Millisecond, 0)
}
