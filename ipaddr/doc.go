// Package ipaddr is a unified IPv4/IPv6 address and range representation.
//
// Every address is a 128-bit value; IPv4 addresses live in the
// IPv4-mapped block ::ffff:0:0/96. Ranges, containment and ordering
// therefore work the same way regardless of family:
//
//	r, _ := ipaddr.ParseCIDR("10.0.0.0/24")
//	r.Contains(ipaddr.MustParseAddr("10.0.0.7")) // true
//	r.String()                                    // "10.0.0.0/24"
//
//	r, _ = ipaddr.RangeFromBounds("10.0.0.0", "10.0.0.200")
//	r.String()                                    // "10.0.0.0-10.0.0.200"
//	r.Prefixes()                                  // [10.0.0.0/25 10.0.0.128/26 ...]
//
// Parsing is strict: dotted quads reject leading zeros, IPv6 text accepts
// at most one "::" and no embedded IPv4 or zone suffix.
package ipaddr
