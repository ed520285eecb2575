package detectors

import "strings"

// Grounded on original_source/src/scanner/protocol_detectors/development_detectors.rs.

func init() {
	register(CategoryDevelopment, cassandraDetector{})
	register(CategoryDevelopment, gitDetector{})
	register(CategoryDevelopment, syncthingDetector{})
	register(CategoryDevelopment, jenkinsDetector{})
	register(CategoryDevelopment, bitTorrentDetector{})
	register(CategoryDevelopment, ircDetector{})
}

type cassandraDetector struct{}

func (cassandraDetector) Name() string { return "Cassandra" }

func (cassandraDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{0x04, 0x00, 0x00, 0x01, 0x05, 0x00, 0x00, 0x00, 0x00},
	}
}

func (cassandraDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 8 {
		version := response[0]
		flags := response[1]
		if version >= 0x03 && version <= 0x05 && flags == 0x00 {
			return Result{ServiceName: "Cassandra-Database", Confidence: 0.88,
				Info: infoMap("protocol", "Cassandra CQL protocol")}, true
		}
	}
	if strings.Contains(s, "cassandra") || strings.Contains(s, "cql") {
		return Result{ServiceName: "Cassandra-Database", Confidence: 0.80,
			Info: infoMap("protocol", "Cassandra database")}, true
	}
	return Result{}, false
}

// BitTorrentHandshakePrefix is the 20-byte protocol-name preamble used
// both here and in the fingerprinter's unconditional BitTorrent check
// (§4.5, SPEC_FULL.md §C.2).
var BitTorrentHandshakePrefix = append([]byte{19}, []byte("BitTorrent protocol")...)

type gitDetector struct{}

func (gitDetector) Name() string { return "Git" }

func (gitDetector) ProbePayloads() [][]byte {
	return [][]byte{[]byte("0032git-upload-pack /repo.git\x00host=localhost\x00")}
}

func (gitDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "001e# service=git-"), strings.Contains(s, "git-upload-pack"), strings.Contains(s, "git-receive-pack"):
		return Result{ServiceName: "Git-Server", Confidence: 0.95,
			Info: infoMap("protocol", "Git smart protocol")}, true
	case strings.Contains(s, "git"):
		return Result{ServiceName: "Git-Server", Confidence: 0.75,
			Info: infoMap("protocol", "Git service")}, true
	default:
		return Result{}, false
	}
}

type syncthingDetector struct{}

func (syncthingDetector) Name() string { return "Syncthing" }

func (syncthingDetector) ProbePayloads() [][]byte {
	return [][]byte{{0x2E, 0xA3, 0x45, 0x23}}
}

func (syncthingDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 4 && response[0] == 0x2E && response[1] == 0xA3 && response[2] == 0x45 && response[3] == 0x23 {
		return Result{ServiceName: "Syncthing-Sync", Confidence: 0.95,
			Info: infoMap("protocol", "Syncthing BEP protocol")}, true
	}
	if strings.Contains(s, "syncthing") || strings.Contains(s, "bep/") {
		return Result{ServiceName: "Syncthing-Sync", Confidence: 0.85,
			Info: infoMap("protocol", "Syncthing service")}, true
	}
	return Result{}, false
}

type jenkinsDetector struct{}

func (jenkinsDetector) Name() string { return "Jenkins" }

func (jenkinsDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET /api/json HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (jenkinsDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if strings.Contains(s, "jenkins") || strings.Contains(s, "x-jenkins") || strings.Contains(s, "hudson") {
		return Result{ServiceName: "Jenkins-CI", Confidence: 0.90,
			Info: infoMap("protocol", "Jenkins CI/CD server")}, true
	}
	return Result{}, false
}

type bitTorrentDetector struct{}

func (bitTorrentDetector) Name() string { return "BitTorrent" }

func (bitTorrentDetector) ProbePayloads() [][]byte {
	handshake := make([]byte, 0, 68)
	handshake = append(handshake, BitTorrentHandshakePrefix...)
	handshake = append(handshake, make([]byte, 8)...)  // reserved
	handshake = append(handshake, make([]byte, 20)...) // info hash
	handshake = append(handshake, []byte("-PORTSCOPE-00000000-")...)
	return [][]byte{handshake}
}

func (bitTorrentDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 20 && response[0] == 19 && string(response[1:20]) == "BitTorrent protocol" {
		return Result{ServiceName: "BitTorrent-P2P", Confidence: 0.95,
			Info: infoMap("protocol", "BitTorrent peer protocol")}, true
	}
	if strings.Contains(s, "bittorrent") || strings.Contains(s, "torrent") || strings.Contains(s, "qbittorrent") {
		return Result{ServiceName: "BitTorrent-P2P", Confidence: 0.85,
			Info: infoMap("protocol", "BitTorrent service")}, true
	}
	return Result{}, false
}

type ircDetector struct{}

func (ircDetector) Name() string { return "IRC" }

func (ircDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("NICK portscope\r\n"),
		[]byte("USER portscope 0 * :portscope\r\n"),
	}
}

func (ircDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if (strings.HasPrefix(s, ":") && (strings.Contains(s, "001") || strings.Contains(s, "notice"))) ||
		strings.Contains(s, "irc") || strings.Contains(s, "ircd") {
		return Result{ServiceName: "IRC-Chat", Confidence: 0.88,
			Info: infoMap("protocol", "IRC chat server")}, true
	}
	return Result{}, false
}
