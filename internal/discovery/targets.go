package discovery

import (
	"net/netip"
	"strings"

	"github.com/metal-toolbox/snatt/internal/model"
)

// ParseTargets expands a scan target expression into addresses.
//
// Accepted forms, comma separated: CIDR (192.168.1.0/24), a dash range
// (192.168.1.1-192.168.1.50) or a single IPv4 address. Network and broadcast
// addresses are excluded from CIDR blocks wider than /31.
func ParseTargets(expr string, maxHosts int) ([]netip.Addr, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, model.InvalidRequestf("IP range is required")
	}

	seen := map[netip.Addr]struct{}{}
	addrs := []netip.Addr{}

	add := func(a netip.Addr) error {
		if _, ok := seen[a]; ok {
			return nil
		}

		if len(addrs) >= maxHosts {
			return model.InvalidRequestf("IP range %q exceeds the limit of %d hosts", expr, maxHosts)
		}

		seen[a] = struct{}{}
		addrs = append(addrs, a)

		return nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var err error

		switch {
		case strings.Contains(part, "/"):
			err = expandPrefix(part, add)
		case strings.Contains(part, "-"):
			err = expandRange(part, add)
		default:
			var a netip.Addr

			a, err = parseIPv4(part)
			if err == nil {
				err = add(a)
			}
		}

		if err != nil {
			return nil, err
		}
	}

	if len(addrs) == 0 {
		return nil, model.InvalidRequestf("IP range %q contains no hosts", expr)
	}

	return addrs, nil
}

func expandPrefix(s string, add func(netip.Addr) error) error {
	prefix, err := netip.ParsePrefix(s)
	if err != nil || !prefix.Addr().Is4() {
		return model.InvalidRequestf("invalid network %q", s)
	}

	prefix = prefix.Masked()
	first := prefix.Addr()

	bits := 32 - prefix.Bits()
	size := uint64(1) << bits

	for i := uint64(0); i < size; i++ {
		if prefix.Bits() < 31 && (i == 0 || i == size-1) {
			first = first.Next()
			continue
		}

		if err := add(first); err != nil {
			return err
		}

		first = first.Next()
	}

	return nil
}

func expandRange(s string, add func(netip.Addr) error) error {
	bounds := strings.SplitN(s, "-", 2)

	start, err := parseIPv4(strings.TrimSpace(bounds[0]))
	if err != nil {
		return model.InvalidRequestf("invalid range %q", s)
	}

	end, err := parseIPv4(strings.TrimSpace(bounds[1]))
	if err != nil {
		return model.InvalidRequestf("invalid range %q", s)
	}

	if end.Less(start) {
		return model.InvalidRequestf("invalid range %q: start address is after end address", s)
	}

	for a := start; ; a = a.Next() {
		if err := add(a); err != nil {
			return err
		}

		if a == end {
			return nil
		}
	}
}

func parseIPv4(s string) (netip.Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is4() {
		return netip.Addr{}, model.InvalidRequestf("invalid IP address %q", s)
	}

	return a, nil
}
