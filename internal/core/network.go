package core

import "net"

// NetworkType classifies an IP address into one of a closed set of
// network classes used to key adaptive-learning profiles (§3, §4.6).
type NetworkType string

const (
	NetworkLocalhost      NetworkType = "localhost"
	NetworkPrivateLAN     NetworkType = "private_lan"
	NetworkPublicInternet NetworkType = "public_internet"
	NetworkCloud          NetworkType = "cloud"
)

// cloudCIDRs is a static table of coarse cloud-provider CIDR
// approximations, grounded on original_source/src/adaptive.rs's
// is_cloud_provider_ip. These are deliberately approximate: real cloud
// ranges change constantly and are out of scope for a pure classifier.
var cloudCIDRs = mustParseCIDRs([]string{
	"3.0.0.0/8",     // AWS (approximation)
	"13.0.0.0/8",    // AWS/Azure (approximation)
	"52.0.0.0/8",    // AWS (approximation)
	"54.0.0.0/8",    // AWS (approximation)
	"34.0.0.0/8",    // GCP (approximation)
	"35.0.0.0/8",    // GCP (approximation)
	"20.0.0.0/8",    // Azure (approximation)
	"40.0.0.0/8",    // Azure (approximation)
	"104.16.0.0/12", // Cloudflare/cloud edge (approximation)
})

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("core: invalid static cloud CIDR: " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

// ClassifyNetwork is a pure, total function of the IP address (§3
// invariant: deterministic and total).
func ClassifyNetwork(ip net.IP) NetworkType {
	if ip == nil {
		return NetworkPublicInternet
	}

	if ip.IsLoopback() {
		return NetworkLocalhost
	}

	if v4 := ip.To4(); v4 != nil {
		if isPrivateIPv4(v4) {
			return NetworkPrivateLAN
		}
		for _, n := range cloudCIDRs {
			if n.Contains(v4) {
				return NetworkCloud
			}
		}
		return NetworkPublicInternet
	}

	// IPv6
	if ip.IsLinkLocalUnicast() || isUniqueLocalIPv6(ip) {
		return NetworkPrivateLAN
	}
	return NetworkPublicInternet
}

func isPrivateIPv4(v4 net.IP) bool {
	// RFC 1918 + link-local (169.254/16); loopback handled separately.
	switch {
	case v4[0] == 10:
		return true
	case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
		return true
	case v4[0] == 192 && v4[1] == 168:
		return true
	case v4[0] == 169 && v4[1] == 254:
		return true
	default:
		return false
	}
}

func isUniqueLocalIPv6(ip net.IP) bool {
	if len(ip) != net.IPv6len {
		return false
	}
	return ip[0] == 0xfc || ip[0] == 0xfd
}

// IsPrivateIP reports whether the target should be treated as a
// private/local address for fast_connect selection (§4.1, §4.7).
func IsPrivateIP(ip net.IP) bool {
	t := ClassifyNetwork(ip)
	return t == NetworkLocalhost || t == NetworkPrivateLAN
}
