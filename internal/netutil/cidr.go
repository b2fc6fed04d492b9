package netutil

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
)

// MaxHosts caps how many addresses a target list may expand to.
const MaxHosts = 1 << 16

// ExpandTargets takes a comma-separated list of CIDR prefixes, single
// addresses or "first-last" ranges plus a set of ports, and returns the base
// URLs (scheme://host[:port]) to scan. Overlapping entries are merged. The
// network and broadcast addresses of IPv4 prefixes wider than /31 are
// skipped.
func ExpandTargets(targets string, portsStr string, scheme string) ([]string, error) {
	set, err := buildSet(targets)
	if err != nil {
		return nil, err
	}

	ports, err := parsePorts(portsStr)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		if scheme == "https" {
			ports = []uint16{443}
		} else {
			ports = []uint16{80}
		}
	}

	var urls []string
	for _, r := range set.Ranges() {
		for ip := r.From(); ip.IsValid() && ip.Compare(r.To()) <= 0; ip = ip.Next() {
			for _, port := range ports {
				// Skip default port in URL for cleanliness.
				if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
					urls = append(urls, scheme+"://"+hostString(ip))
				} else {
					urls = append(urls, scheme+"://"+netip.AddrPortFrom(ip, port).String())
				}
			}
		}
	}
	return urls, nil
}

func buildSet(targets string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for raw := range strings.SplitSeq(targets, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		switch {
		case strings.Contains(raw, "/"):
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", raw, err)
			}
			p = p.Masked()
			b.AddPrefix(p)
			if p.Addr().Is4() && p.Bits() < 31 {
				r := netipx.RangeOfPrefix(p)
				b.Remove(r.From())
				b.Remove(r.To())
			}
		case strings.Contains(raw, "-"):
			r, err := netipx.ParseIPRange(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid IP range %q: %w", raw, err)
			}
			b.AddRange(r)
		default:
			ip, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR or IP: %q", raw)
			}
			b.Add(ip)
		}
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("building target set: %w", err)
	}
	if n := countAddrs(set); n > MaxHosts {
		return nil, fmt.Errorf("target set too large: more than %d addresses", MaxHosts)
	} else if n == 0 {
		return nil, fmt.Errorf("no addresses in %q", targets)
	}
	return set, nil
}

// countAddrs counts addresses in set, stopping once the cap is exceeded.
func countAddrs(set *netipx.IPSet) int {
	n := 0
	for _, p := range set.Prefixes() {
		hostBits := p.Addr().BitLen() - p.Bits()
		if hostBits > 16 {
			return MaxHosts + 1
		}
		n += 1 << hostBits
		if n > MaxHosts {
			return n
		}
	}
	return n
}

func hostString(ip netip.Addr) string {
	if ip.Is6() {
		return "[" + ip.String() + "]"
	}
	return ip.String()
}

func parsePorts(s string) ([]uint16, error) {
	var ports []uint16
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, uint16(n))
	}
	return ports, nil
}
