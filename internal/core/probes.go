package core

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

// ConnectScan performs a plain TCP connect probe (§4.1). Connection
// refused is immediate and means the port is closed; any other dial
// error (host/net unreachable, timeout) is reported as filtered.
func ConnectScan(ctx context.Context, target string, port uint16, timeout time.Duration) (PortStatus, time.Duration) {
	start := time.Now()
	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		if isConnRefused(err) {
			return StatusClosed, elapsed
		}
		return StatusFiltered, elapsed
	}
	_ = conn.Close()
	return StatusOpen, elapsed
}

// FastConnectScan probes with a short timeout first (good for LANs),
// then falls back to the full timeout on anything but an immediate
// refusal (§4.1, §4.7 — selected for targets IsPrivateIP classifies
// as local).
func FastConnectScan(ctx context.Context, target string, port uint16, timeoutMs int) (PortStatus, time.Duration) {
	start := time.Now()
	shortMs := timeoutMs
	if shortMs > 300 {
		shortMs = 300
	}

	status, _ := ConnectScan(ctx, target, port, time.Duration(shortMs)*time.Millisecond)
	if status == StatusOpen || status == StatusClosed {
		return status, time.Since(start)
	}

	remaining := timeoutMs - shortMs
	if remaining < 0 {
		remaining = 0
	}
	status, _ = ConnectScan(ctx, target, port, time.Duration(remaining)*time.Millisecond)
	return status, time.Since(start)
}

func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// UDPScan sends an empty datagram and classifies the port by reply,
// ICMP error, or timeout (§4.1). A reply of any length means Open. A
// ECONNREFUSED (ICMP port-unreachable) means Closed. EHOSTUNREACH and
// ENETUNREACH mean Filtered. A read timeout with no ICMP error also
// means Filtered, since UDP gives no positive signal for "closed" in
// that case.
func UDPScan(ctx context.Context, target string, port uint16, timeout time.Duration) (PortStatus, time.Duration, []byte) {
	start := time.Now()
	addr := net.JoinHostPort(target, strconv.Itoa(int(port)))

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return StatusFiltered, time.Since(start), nil
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(nil); err != nil {
		return classifyUDPError(err), time.Since(start), nil
	}

	buf := make([]byte, DefaultUDPBufferSize)
	n, err := conn.Read(buf)
	elapsed := time.Since(start)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return StatusFiltered, elapsed, nil
		}
		return classifyUDPError(err), elapsed, nil
	}
	return StatusOpen, elapsed, buf[:n]
}

func classifyUDPError(err error) PortStatus {
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		switch syscallErr.Err {
		case syscall.ECONNREFUSED:
			return StatusClosed
		case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return StatusFiltered
		default:
			return StatusFiltered
		}
	}
	return StatusClosed
}
