package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// top100Ports is the canonical list of the 100 most commonly open TCP
// ports, selected via Nmap's well-known frequency data. Selected with
// the "top100" token.
var top100Ports = []uint16{
	7, 9, 13, 21, 22, 23, 25, 26, 37, 53, 79, 80, 81, 88, 106, 110, 111,
	113, 119, 135, 139, 143, 144, 179, 199,
	389, 427, 443, 444, 445, 465, 513, 514, 515, 543,
	544, 548, 554, 587, 631, 646, 873, 990, 993, 995, 1025, 1026, 1027,
	1028, 1029, 1110, 1433, 1720, 1723, 1755, 1900, 2000, 2001, 2049,
	2121, 2717, 3000, 3128, 3306, 3389, 3986, 4899, 5000, 5009, 5051,
	5060, 5101, 5190, 5357, 5432, 5631, 5666, 5800, 5900, 6000, 6001,
	6646, 7070, 8000, 8008, 8009, 8080, 8081, 8443, 8888, 9100, 9999,
	10000, 32768, 49152, 49153, 49154, 49155, 49156, 49157,
}

// ParsePorts parses a port specification string into a list of unique ports.
// Supports single ports (80), ranges (1-1024), comma-separated lists, the
// 'top100' token, and a bare '-' meaning the full 1-65535 range.
func ParsePorts(spec string) ([]uint16, error) {
	seen := make(map[uint16]struct{})
	var result []uint16

	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		ports, err := parsePortToken(token)
		if err != nil {
			return nil, err
		}

		result = appendUniquePorts(result, ports, seen)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no valid ports specified")
	}

	return result, nil
}

func parsePortToken(token string) ([]uint16, error) {
	switch token {
	case "top100":
		return top100Ports, nil
	case "-":
		return buildPortRange(1, 65535), nil
	}

	if strings.Contains(token, "-") {
		start, end, err := parsePortRange(token)
		if err != nil {
			return nil, err
		}
		return buildPortRange(start, end), nil
	}

	port, err := parseSinglePort(token)
	if err != nil {
		return nil, err
	}
	return []uint16{port}, nil
}

func parseSinglePort(value string) (uint16, error) {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || num < 1 || num > 65535 {
		return 0, fmt.Errorf("invalid port: %s", value)
	}
	return uint16(num), nil
}

func parsePortRange(token string) (int, int, error) {
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid port range: %s", token)
	}

	start, err := parseRangeBoundary(parts[0], "start")
	if err != nil {
		return 0, 0, err
	}

	end, err := parseRangeBoundary(parts[1], "end")
	if err != nil {
		return 0, 0, err
	}

	if start > end {
		return 0, 0, fmt.Errorf("invalid port range: start > end in %s", token)
	}

	return start, end, nil
}

func parseRangeBoundary(value string, position string) (int, error) {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || num < 1 || num > 65535 {
		return 0, fmt.Errorf("invalid %s port in range: %s", position, value)
	}
	return num, nil
}

func buildPortRange(start, end int) []uint16 {
	ports := make([]uint16, 0, end-start+1)
	for p := start; p <= end && p <= 65535; p++ {
		ports = append(ports, uint16(p))
	}
	return ports
}

func appendUniquePorts(dest []uint16, ports []uint16, seen map[uint16]struct{}) []uint16 {
	for _, port := range ports {
		if _, exists := seen[port]; exists {
			continue
		}
		dest = append(dest, port)
		seen[port] = struct{}{}
	}
	return dest
}
