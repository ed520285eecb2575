package detectors

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Grounded on original_source/src/scanner/protocol_detectors/database_detectors.rs,
// plus the MySQL probe from original_source/src/scanner/service_detection.rs.

func init() {
	register(CategoryDatabase, postgresDetector{})
	register(CategoryDatabase, mongoDetector{})
	register(CategoryDatabase, redisDetector{})
	register(CategoryDatabase, mysqlDetector{})
}

type postgresDetector struct{}

func (postgresDetector) Name() string { return "PostgreSQL" }

func (postgresDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x00, 0x00, 0x00, 0x30, 0x00, 0x03, 0x00, 0x00,
			'u', 's', 'e', 'r', 0x00, 't', 'e', 's',
			't', 0x00, 'd', 'a', 't', 'a', 'b', 'a',
			's', 'e', 0x00, 't', 'e', 's', 't', 0x00,
			0x00,
		},
	}
}

func (postgresDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)

	if len(response) >= 9 && response[0] == 'R' {
		msgLen := binary.BigEndian.Uint32(response[1:5])
		authOK := response[5] == 0 && response[6] == 0 && response[7] == 0 && response[8] == 0
		switch {
		case msgLen == 8 && authOK:
			return Result{ServiceName: "PostgreSQL-Database", Confidence: 0.90,
				Info: infoMap("protocol", "PostgreSQL wire protocol", "auth_type", "OK")}, true
		case msgLen >= 8 && msgLen <= 1024:
			return Result{ServiceName: "PostgreSQL-Database", Confidence: 0.85,
				Info: infoMap("protocol", "PostgreSQL wire protocol")}, true
		}
	}
	if len(response) >= 4 && response[0] == 'E' && strings.Contains(s, "postgresql") {
		return Result{ServiceName: "PostgreSQL-Database", Confidence: 0.85,
			Info: infoMap("protocol", "PostgreSQL error response")}, true
	}
	return Result{}, false
}

type mongoDetector struct{}

func (mongoDetector) Name() string { return "MongoDB" }

func (mongoDetector) ProbePayloads() [][]byte {
	return [][]byte{
		{
			0x3a, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
			0x01, 0x00, 0x00, 0x00, 0xd4, 0x07, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00, 0x61, 0x64, 0x6d, 0x69,
			0x6e, 0x2e, 0x24, 0x63, 0x6d, 0x64, 0x00, 0x00,
			0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x1b,
			0x00, 0x00, 0x00, 0x10, 0x69, 0x73, 0x6d, 0x61,
			0x73, 0x74, 0x65, 0x72, 0x00, 0x01, 0x00, 0x00,
			0x00, 0x00,
		},
	}
}

func (mongoDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if len(response) >= 16 {
		msgLen := binary.LittleEndian.Uint32(response[0:4])
		responseTo := binary.LittleEndian.Uint32(response[8:12])
		opCode := binary.LittleEndian.Uint32(response[12:16])
		if msgLen > 16 && msgLen < 16777216 && responseTo != 0 && opCode == 1 {
			return Result{ServiceName: "MongoDB-Database", Confidence: 0.88,
				Info: infoMap("protocol", "MongoDB BSON wire protocol")}, true
		}
	}
	if strings.Contains(s, "ismaster") && strings.Contains(s, "bson") {
		return Result{ServiceName: "MongoDB-Database", Confidence: 0.85,
			Info: infoMap("protocol", "MongoDB isMaster response")}, true
	}
	return Result{}, false
}

type redisDetector struct{}

func (redisDetector) Name() string { return "Redis" }

func (redisDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("PING\r\n"),
		[]byte("INFO\r\n"),
		[]byte("ECHO test\r\n"),
	}
}

func (redisDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "+pong"), strings.HasPrefix(s, "+ok"), strings.Contains(s, "redis_version"):
		return Result{ServiceName: "Redis-Service", Confidence: 0.85,
			Info: infoMap("protocol", "Redis RESP protocol")}, true
	case strings.HasPrefix(s, "+") && strings.Contains(s, "\r\n"):
		return Result{ServiceName: "Redis-Service", Confidence: 0.85,
			Info: infoMap("protocol", "Redis RESP protocol")}, true
	case strings.HasPrefix(s, "$") && len(s) > 3:
		return Result{ServiceName: "Redis-Service", Confidence: 0.85,
			Info: infoMap("protocol", "Redis RESP protocol")}, true
	default:
		return Result{}, false
	}
}

// mysqlDetector sends no probe at all: the original's MySQL entry
// (service_detection.rs) has an empty probe_data, relying purely on the
// server's unsolicited handshake greeting. ParallelDetector substitutes
// a nil payload for an empty ProbePayloads() slice, which is exactly
// this "connect and read" semantics.
type mysqlDetector struct{}

func (mysqlDetector) Name() string { return "MySQL" }

func (mysqlDetector) ProbePayloads() [][]byte {
	return [][]byte{}
}

func (mysqlDetector) Classify(response []byte) (Result, bool) {
	// Handshake packet: 3-byte length + 1-byte sequence id, then a
	// protocol version byte that is 0x0a for every still-supported
	// MySQL/MariaDB server, followed by a NUL-terminated version string.
	if len(response) >= 6 && response[4] == 0x0a {
		return Result{ServiceName: "MySQL-Database", Confidence: 0.88,
			Version: extractMySQLVersion(response[5:]),
			Info:    infoMap("protocol", "MySQL handshake greeting")}, true
	}
	s := lower(response)
	if strings.Contains(s, "mysql") || strings.Contains(s, "mariadb") {
		return Result{ServiceName: "MySQL-Database", Confidence: 0.70,
			Info: infoMap("protocol", "MySQL service")}, true
	}
	return Result{}, false
}

// extractMySQLVersion mirrors service_detection.rs's version_regex
// "([0-9]+\.[0-9]+\.[0-9]+[^\x00]*)" by reading the NUL-terminated
// version string that follows the protocol byte in the greeting.
func extractMySQLVersion(b []byte) string {
	end := bytes.IndexByte(b, 0x00)
	if end == -1 {
		end = len(b)
	}
	return string(b[:end])
}
