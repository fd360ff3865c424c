package netutil

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// MaxHosts caps how many addresses a single expansion may produce.
const MaxHosts = 1 << 16

// ExpandTargets takes comma-separated CIDR ranges or single IPs and a
// comma-separated port list, and returns base URLs (scheme://host[:port])
// to scan. Port 80 is always http and 443 always https; other ports use
// scheme. With no ports the scheme's default port is used. Network and
// broadcast addresses of IPv4 ranges wider than /31 are skipped.
func ExpandTargets(cidrs, portsStr, scheme string) ([]string, error) {
	if scheme == "" {
		scheme = "https"
	}
	ports, err := parsePorts(portsStr)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		ports = []int{defaultPort(scheme)}
	}

	var urls []string
	for _, raw := range strings.Split(cidrs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := parsePrefix(raw)
		if err != nil {
			return nil, err
		}
		addrs, err := hosts(prefix)
		if err != nil {
			return nil, err
		}
		for _, addr := range addrs {
			for _, port := range ports {
				urls = append(urls, formatURL(scheme, addr, port))
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no addresses in %q", cidrs)
	}
	return urls, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid CIDR %q: %w", s, err)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR or IP %q: %w", s, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func hosts(p netip.Prefix) ([]netip.Addr, error) {
	hostBits := p.Addr().BitLen() - p.Bits()
	if hostBits > 16 {
		return nil, fmt.Errorf("range %s exceeds %d addresses", p, MaxHosts)
	}

	var addrs []netip.Addr
	for a := p.Addr(); a.IsValid() && p.Contains(a); a = a.Next() {
		addrs = append(addrs, a)
	}
	if p.Addr().Is4() && hostBits > 1 {
		addrs = addrs[1 : len(addrs)-1]
	}
	return addrs, nil
}

func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", f)
		}
		ports = append(ports, n)
	}
	return ports, nil
}

func defaultPort(scheme string) int {
	if scheme == "http" {
		return 80
	}
	return 443
}

func formatURL(scheme string, addr netip.Addr, port int) string {
	switch port {
	case 80:
		scheme = "http"
	case 443:
		scheme = "https"
	}
	host := addr.String()
	if addr.Is6() {
		host = "[" + host + "]"
	}
	if port == defaultPort(scheme) {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + strconv.Itoa(port)
}
