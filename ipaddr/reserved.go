package ipaddr

import (
	"net/netip"

	"go4.org/netipx"
)

// reservedBlocks lists address space that is never publicly routed and so
// has no meaningful RDAP registration.
var reservedBlocks = []string{
	"0.0.0.0/8",       // current network
	"10.0.0.0/8",      // private
	"100.64.0.0/10",   // cgnat
	"127.0.0.0/8",     // loopback
	"169.254.0.0/16",  // link-local
	"172.16.0.0/12",   // private
	"192.0.0.0/24",    // protocol assignments
	"192.0.2.0/24",    // documentation
	"192.168.0.0/16",  // private
	"198.18.0.0/15",   // benchmarking
	"198.51.100.0/24", // documentation
	"203.0.113.0/24",  // documentation
	"224.0.0.0/4",     // multicast
	"240.0.0.0/4",     // future use, limited broadcast
	"::/127",          // unspecified, loopback
	"64:ff9b:1::/48",  // local-use ipv4/ipv6 translation
	"100::/64",        // discard
	"2001::/23",       // protocol assignments
	"2001:db8::/32",   // documentation
	"2002::/16",       // 6to4
	"3fff::/20",       // documentation
	"5f00::/16",       // segment routing
	"fc00::/7",        // private
	"fe80::/10",       // link-local
	"ff00::/8",        // multicast
}

var reservedSet = mustReservedSet(reservedBlocks)

func mustReservedSet(blocks []string) *netipx.IPSet {
	var b netipx.IPSetBuilder
	for _, s := range blocks {
		b.AddRange(MustParseCIDR(s).ipRange16())
	}
	set, err := b.IPSet()
	if err != nil {
		panic(err)
	}
	return set
}

// IsReserved reports whether q lies entirely within non-public address
// space (private, loopback, link-local, documentation, multicast, ...).
func IsReserved(q Query) bool {
	if q == nil {
		return false
	}
	start, end := q.Bounds()
	return reservedSet.ContainsRange(netipx.IPRangeFrom(start.netip16(), end.netip16()))
}

// ReservedPrefixes returns the reserved blocks as netip prefixes, IPv4
// blocks in the IPv4 family.
func ReservedPrefixes() []netip.Prefix {
	out := make([]netip.Prefix, 0, len(reservedBlocks))
	for _, s := range reservedBlocks {
		p, _ := MustParseCIDR(s).Prefix()
		out = append(out, p)
	}
	return out
}
