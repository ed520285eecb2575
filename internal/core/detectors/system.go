package detectors

import "strings"

// Grounded on original_source/src/scanner/protocol_detectors/system_detectors.rs.

func init() {
	register(CategorySystem, dnsDetector{})
	register(CategorySystem, ldapDetector{})
	register(CategorySystem, smtpDetector{})
	register(CategorySystem, vncDetector{})
	register(CategorySystem, rdpDetector{})
	register(CategorySystem, memcachedDetector{})
	register(CategorySystem, sshDetector{})
	register(CategorySystem, ftpDetector{})
}

// lineAfterPrefix trims prefix off s and returns everything up to the
// first CR or LF, matching the original's "version_regex" captures
// (service_detection.rs) without pulling in regexp.
func lineAfterPrefix(s, prefix string) string {
	rest := strings.TrimPrefix(s, prefix)
	if idx := strings.IndexAny(rest, "\r\n"); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}

type dnsDetector struct{}

func (dnsDetector) Name() string { return "DNS" }

func (dnsDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x00, 0x01,
			0x01, 0x00,
			0x00, 0x01,
			0x00, 0x00,
			0x00, 0x00,
			0x00, 0x00,
			0x07, 'v', 'e', 'r', 's', 'i', 'o', 'n',
			0x04, 'b', 'i', 'n', 'd',
			0x00,
			0x00, 0x10,
			0x00, 0x03,
		},
	}
}

func (dnsDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 12 {
		qr := response[2]&0x80 != 0
		opcode := (response[2] & 0x78) >> 3
		if qr && opcode == 0 {
			return Result{ServiceName: "DNS-Server", Confidence: 0.88,
				Info: infoMap("protocol", "DNS response")}, true
		}
	}
	if strings.Contains(s, "bind") || strings.Contains(s, "dns") {
		return Result{ServiceName: "DNS-Server", Confidence: 0.80,
			Info: infoMap("protocol", "DNS service")}, true
	}
	return Result{}, false
}

type ldapDetector struct{}

func (ldapDetector) Name() string { return "LDAP" }

func (ldapDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x30, 0x0c,
			0x02, 0x01, 0x01,
			0x60, 0x07,
			0x02, 0x01, 0x03,
			0x04, 0x00,
			0x80, 0x00,
		},
	}
}

func (ldapDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) > 10 && response[0] == 0x30 {
		return Result{ServiceName: "LDAP-Directory", Confidence: 0.82,
			Info: infoMap("protocol", "LDAP directory service")}, true
	}
	if strings.Contains(s, "ldap") || strings.Contains(s, "directory") {
		return Result{ServiceName: "LDAP-Directory", Confidence: 0.75,
			Info: infoMap("protocol", "LDAP service")}, true
	}
	return Result{}, false
}

type smtpDetector struct{}

func (smtpDetector) Name() string { return "SMTP" }

func (smtpDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("EHLO localhost\r\n"),
		[]byte("HELO localhost\r\n"),
	}
}

func (smtpDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "220 "), strings.HasPrefix(s, "250 "), strings.Contains(s, "smtp"), strings.Contains(s, "mail"):
		return Result{ServiceName: "SMTP-Mail", Confidence: 0.90,
			Info: infoMap("protocol", "SMTP mail server")}, true
	case strings.Contains(s, "postfix"), strings.Contains(s, "sendmail"):
		return Result{ServiceName: "SMTP-Mail", Confidence: 0.85,
			Info: infoMap("protocol", "Mail server")}, true
	default:
		return Result{}, false
	}
}

type vncDetector struct{}

func (vncDetector) Name() string { return "VNC" }

func (vncDetector) ProbePayloads() [][]byte {
	return [][]byte{[]byte("RFB 003.008\n")}
}

func (vncDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "rfb "):
		return Result{ServiceName: "VNC-Remote", Confidence: 0.95,
			Info: infoMap("protocol", "VNC remote desktop")}, true
	case strings.Contains(s, "vnc"), strings.Contains(s, "remote"):
		return Result{ServiceName: "VNC-Remote", Confidence: 0.80,
			Info: infoMap("protocol", "VNC service")}, true
	default:
		return Result{}, false
	}
}

type rdpDetector struct{}

func (rdpDetector) Name() string { return "RDP" }

func (rdpDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x03, 0x00, 0x00, 0x13,
			0x0e, 0xe0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00,
		},
	}
}

func (rdpDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 4 && response[0] == 0x03 && response[1] == 0x00 {
		return Result{ServiceName: "RDP-Remote", Confidence: 0.88,
			Info: infoMap("protocol", "RDP remote desktop")}, true
	}
	if strings.Contains(s, "rdp") || strings.Contains(s, "terminal") {
		return Result{ServiceName: "RDP-Remote", Confidence: 0.75,
			Info: infoMap("protocol", "RDP service")}, true
	}
	return Result{}, false
}

// sshDetector is grounded on original_source/src/scanner/service_detection.rs's
// SSH probe: "SSH-2.0-PortScope\r\n" -> expects a "SSH-" banner prefix,
// version_regex "SSH-([0-9.]+[^\r\n]*)".
type sshDetector struct{}

func (sshDetector) Name() string { return "SSH" }

func (sshDetector) ProbePayloads() [][]byte {
	return [][]byte{[]byte("SSH-2.0-PortScope\r\n")}
}

func (sshDetector) Classify(response []byte) (Result, bool) {
	s := string(response)
	if strings.HasPrefix(s, "SSH-") {
		return Result{ServiceName: "SSH-Server", Confidence: 0.95,
			Version: lineAfterPrefix(s, "SSH-"),
			Info:    infoMap("protocol", "SSH banner exchange")}, true
	}
	ls := lower(response)
	if strings.Contains(ls, "ssh") || strings.Contains(ls, "openssh") {
		return Result{ServiceName: "SSH-Server", Confidence: 0.70,
			Info: infoMap("protocol", "SSH service")}, true
	}
	return Result{}, false
}

// ftpDetector is grounded on original_source/src/scanner/service_detection.rs's
// FTP probe: "USER anonymous\r\n" -> expects a "220" reply code,
// version_regex "220[- ]([^\r\n]+)".
type ftpDetector struct{}

func (ftpDetector) Name() string { return "FTP" }

func (ftpDetector) ProbePayloads() [][]byte {
	return [][]byte{[]byte("USER anonymous\r\n")}
}

func (ftpDetector) Classify(response []byte) (Result, bool) {
	s := string(response)
	if strings.HasPrefix(s, "220") {
		version := ""
		if len(s) > 3 && (s[3] == '-' || s[3] == ' ') {
			version = lineAfterPrefix(s, s[:4])
		}
		return Result{ServiceName: "FTP-Server", Confidence: 0.90,
			Version: version,
			Info:    infoMap("protocol", "FTP control channel banner")}, true
	}
	ls := lower(response)
	if strings.Contains(ls, "ftp") {
		return Result{ServiceName: "FTP-Server", Confidence: 0.70,
			Info: infoMap("protocol", "FTP service")}, true
	}
	return Result{}, false
}

type memcachedDetector struct{}

func (memcachedDetector) Name() string { return "Memcached" }

func (memcachedDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("version\r\n"),
		[]byte("stats\r\n"),
	}
}

func (memcachedDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "stat "), strings.HasPrefix(s, "version "), strings.Contains(s, "memcached"):
		return Result{ServiceName: "Memcached-Cache", Confidence: 0.90,
			Info: infoMap("protocol", "Memcached caching service")}, true
	case strings.Contains(s, "cache"):
		return Result{ServiceName: "Memcached-Cache", Confidence: 0.70,
			Info: infoMap("protocol", "Caching service")}, true
	default:
		return Result{}, false
	}
}
