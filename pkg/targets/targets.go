package targets

import (
	"fmt"
	"net"
	"strings"
)

const (
	defaultCIDRHostLimit = 65536

	// maxIPRangeSize bounds an explicit A.B.C.D-E.F.G.H range to avoid a
	// typo turning into a scan of most of the address space.
	maxIPRangeSize = 10000

	// maxIPv6CIDRHosts truncates IPv6 CIDR expansion; IPv6 networks are
	// routinely too large to enumerate and CIDRHostLimit does not apply to them.
	maxIPv6CIDRHosts = 1000
)

// Options customises target resolution behaviours.
type Options struct {
	// CIDRHostLimit restricts the maximum number of hosts produced by a single
	// IPv4 CIDR or IP range. Defaults to defaultCIDRHostLimit when zero or
	// negative. IPv6 CIDRs are always truncated at maxIPv6CIDRHosts instead.
	CIDRHostLimit int
}

// Resolve normalises a list of user-provided targets (hosts, IPs, CIDRs, and
// IP ranges) into a deduplicated slice of scan-ready host strings.
func Resolve(inputs []string, opts Options) ([]string, error) {
	limit := opts.CIDRHostLimit
	if limit <= 0 {
		limit = defaultCIDRHostLimit
	}

	seen := make(map[string]struct{})
	var resolved []string

	for _, raw := range inputs {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		expanded, err := expandToken(token, limit)
		if err != nil {
			return nil, err
		}

		for _, host := range expanded {
			if _, exists := seen[host]; exists {
				continue
			}
			seen[host] = struct{}{}
			resolved = append(resolved, host)
		}
	}

	if len(resolved) == 0 {
		return nil, fmt.Errorf("no valid targets provided")
	}

	return resolved, nil
}

func expandToken(token string, limit int) ([]string, error) {
	if ip := net.ParseIP(token); ip != nil {
		return []string{token}, nil
	}

	if strings.Contains(token, "/") {
		_, network, err := net.ParseCIDR(token)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", token, err)
		}
		return expandCIDR(network, limit)
	}

	// An IP range (A.B.C.D-E.F.G.H) looks like a hyphenated hostname, so only
	// commit to range parsing once both sides actually parse as addresses;
	// otherwise fall through and let it be validated as a hostname.
	if strings.Contains(token, "-") && !strings.Contains(token, ":") {
		if hosts, isRange, err := expandIPRange(token); isRange {
			return hosts, err
		}
	}

	if err := validateHostname(token); err != nil {
		return nil, fmt.Errorf("invalid hostname %q: %w", token, err)
	}

	return []string{token}, nil
}

// expandIPRange parses a token as start-end IPv4 addresses. The bool return
// reports whether the token was recognised as a range at all (both sides
// parsed as IP addresses); when false, the caller should try other token
// kinds instead of treating this as an error.
func expandIPRange(token string) ([]string, bool, error) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return nil, false, nil
	}

	startIP := net.ParseIP(strings.TrimSpace(parts[0]))
	endIP := net.ParseIP(strings.TrimSpace(parts[1]))
	if startIP == nil || endIP == nil {
		return nil, false, nil
	}

	startV4, endV4 := startIP.To4(), endIP.To4()
	if (startV4 == nil) != (endV4 == nil) {
		return nil, true, fmt.Errorf("invalid IP range %q: start and end IP must be the same version", token)
	}
	if startV4 == nil {
		return nil, true, fmt.Errorf("invalid IP range %q: IPv6 ranges are not supported", token)
	}

	start := ipv4ToUint32(startV4)
	end := ipv4ToUint32(endV4)
	if start > end {
		return nil, true, fmt.Errorf("invalid IP range %q: start must not be after end", token)
	}
	if end-start > maxIPRangeSize {
		return nil, true, fmt.Errorf("IP range %q too large (max %d addresses)", token, maxIPRangeSize+1)
	}

	hosts := make([]string, 0, end-start+1)
	for v := start; ; v++ {
		hosts = append(hosts, uint32ToIPv4(v).String())
		if v == end {
			break
		}
	}
	return hosts, true, nil
}

func expandCIDR(network *net.IPNet, limit int) ([]string, error) {
	if network.IP.To4() != nil {
		return expandIPv4CIDR(network, limit)
	}
	return expandIPv6CIDR(network), nil
}

// expandIPv4CIDR expands a CIDR to its usable host addresses, excluding the
// network and broadcast addresses. /31 and /32 have no such addresses to
// exclude, so every address in them is usable.
func expandIPv4CIDR(network *net.IPNet, limit int) ([]string, error) {
	ones, bits := network.Mask.Size()
	if ones == 0 && bits == 0 {
		return nil, fmt.Errorf("invalid CIDR mask for %q", network.String())
	}

	hostBits := bits - ones
	if hostBits < 0 {
		return nil, fmt.Errorf("invalid CIDR mask for %q", network.String())
	}

	total := uint64(1) << uint(hostBits)
	start, end := uint64(0), total-1
	if hostBits > 1 {
		start, end = 1, total-2
	}
	hostCount := end - start + 1

	if hostCount > uint64(limit) {
		return nil, fmt.Errorf("CIDR %q expands to %d hosts (limit %d)", network.String(), hostCount, limit)
	}

	base := ipv4ToUint32(network.IP.Mask(network.Mask).To4())
	hosts := make([]string, 0, hostCount)
	for i := start; i <= end; i++ {
		hosts = append(hosts, uint32ToIPv4(base+uint32(i)).String())
	}
	return hosts, nil
}

// expandIPv6CIDR enumerates up to maxIPv6CIDRHosts addresses from an IPv6
// network. IPv6 networks routinely hold far more addresses than any scan
// could use, so the expansion is truncated rather than rejected.
func expandIPv6CIDR(network *net.IPNet) []string {
	current := make(net.IP, len(network.IP))
	copy(current, network.IP.Mask(network.Mask))

	hosts := make([]string, 0, maxIPv6CIDRHosts)
	for i := 0; i < maxIPv6CIDRHosts; i++ {
		if !network.Contains(current) {
			break
		}
		hosts = append(hosts, current.String())
		incrementIP(current)
	}
	return hosts
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

func ipv4ToUint32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIPv4(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func validateHostname(hostname string) error {
	if err := validateHostnameLength(hostname); err != nil {
		return err
	}
	if err := validateHostnameEdges(hostname); err != nil {
		return err
	}
	if strings.Contains(hostname, "..") {
		return fmt.Errorf("hostname cannot contain consecutive '.' characters")
	}

	for _, label := range strings.Split(hostname, ".") {
		if err := validateHostnameLabel(label); err != nil {
			return err
		}
	}
	return nil
}

func validateHostnameLength(hostname string) error {
	if len(hostname) == 0 || len(hostname) > 253 {
		return fmt.Errorf("length must be between 1 and 253 characters")
	}
	return nil
}

func validateHostnameEdges(hostname string) error {
	if hostname[0] == '.' || hostname[0] == '-' ||
		hostname[len(hostname)-1] == '.' || hostname[len(hostname)-1] == '-' {
		return fmt.Errorf("hostname cannot start or end with '.' or '-'")
	}
	return nil
}

func validateHostnameLabel(label string) error {
	if len(label) == 0 || len(label) > 63 {
		return fmt.Errorf("hostname labels must be 1-63 characters each")
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("hostname labels cannot start or end with '-'")
	}
	for _, ch := range label {
		if (ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' {
			continue
		}
		return fmt.Errorf("invalid character %q in hostname", ch)
	}
	return nil
}
