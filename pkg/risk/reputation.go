package risk

import (
	"context"
	"errors"
	"net/netip"
)

// StaticIPReputationChecker classifies IPs against fixed CIDR lists. Lists
// are typically loaded from a threat feed at startup; lookups are pure and
// never touch the network.
type StaticIPReputationChecker struct {
	vpn      []netip.Prefix
	tor      []netip.Prefix
	knownBad []netip.Prefix
}

// StaticReputationLists holds the CIDR ranges for each classification.
type StaticReputationLists struct {
	VPN      []string
	Tor      []string
	KnownBad []string
}

// NewStaticIPReputationChecker parses the CIDR lists up front so Check never
// fails on configuration.
func NewStaticIPReputationChecker(lists StaticReputationLists) (*StaticIPReputationChecker, error) {
	parse := func(cidrs []string) ([]netip.Prefix, error) {
		out := make([]netip.Prefix, 0, len(cidrs))
		for _, cidr := range cidrs {
			prefix, err := netip.ParsePrefix(cidr)
			if err != nil {
				return nil, errors.Join(ErrInvalidConfig, err)
			}
			out = append(out, prefix)
		}
		return out, nil
	}

	vpn, err := parse(lists.VPN)
	if err != nil {
		return nil, err
	}
	tor, err := parse(lists.Tor)
	if err != nil {
		return nil, err
	}
	knownBad, err := parse(lists.KnownBad)
	if err != nil {
		return nil, err
	}

	return &StaticIPReputationChecker{vpn: vpn, tor: tor, knownBad: knownBad}, nil
}

func (c *StaticIPReputationChecker) Check(ctx context.Context, ip string) (Reputation, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Reputation{}, errors.Join(ErrInvalidIP, err)
	}

	return Reputation{
		VPN:      contains(c.vpn, addr),
		Tor:      contains(c.tor, addr),
		KnownBad: contains(c.knownBad, addr),
	}, nil
}

func contains(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

var _ IPReputationChecker = (*StaticIPReputationChecker)(nil)
