package ipaddr

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// v4MappedLo is the top 32 bits of the low half of every IPv4-mapped
// address (::ffff:0:0/96); the high half is zero.
const v4MappedLo = 0xffff

// Addr is an IPv4 or IPv6 address held as a single 128-bit value.
// IPv4 addresses are stored in their IPv4-mapped IPv6 form, so both
// families share one total order.
//
// Addr is comparable; == compares the raw 128-bit values.
type Addr struct {
	u uint128
}

// FormatFlags control how an Addr is rendered.
type FormatFlags uint8

const (
	// Force6 renders IPv4-mapped addresses in IPv6 hex form.
	Force6 FormatFlags = 1 << iota
	// Compact strips leading zeros in each group and replaces the longest
	// run of two or more zero groups with "::".
	Compact
)

// AddrFrom128 returns the address whose 128-bit value is hi<<64 | lo.
func AddrFrom128(hi, lo uint64) Addr { return Addr{uint128{hi, lo}} }

// AddrFrom4 returns the IPv4-mapped address for a 32-bit IPv4 value.
func AddrFrom4(v4 uint32) Addr { return Addr{uint128{0, v4MappedLo<<32 | uint64(v4)}} }

// AddrFromNetip converts a netip.Addr. Zones are dropped and the invalid
// zero netip.Addr maps to "::".
func AddrFromNetip(ip netip.Addr) Addr {
	if !ip.IsValid() {
		return Addr{}
	}
	b := ip.As16()
	var u uint128
	for i := 0; i < 8; i++ {
		u.hi = u.hi<<8 | uint64(b[i])
		u.lo = u.lo<<8 | uint64(b[i+8])
	}
	return Addr{u}
}

// ParseAddr parses s as a dotted-quad IPv4 address or a colon-hex IPv6
// address. IPv4 octets must be decimal 0-255 without leading zeros. IPv6
// text has eight groups of one to four hex digits, or fewer groups with a
// single "::". Embedded IPv4 suffixes and zones are not accepted.
func ParseAddr(s string) (Addr, error) {
	if v4, ok := parseV4(s); ok {
		return AddrFrom4(v4), nil
	}
	if u, ok := parseV6(s); ok {
		return Addr{u}, nil
	}
	return Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddressFormat, s)
}

// MustParseAddr is like ParseAddr but panics on error. Intended for tests
// and package-level tables.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func parseV4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, p := range parts {
		o, ok := parseDecimal(p, 255)
		if !ok {
			return 0, false
		}
		v = v<<8 | uint32(o)
	}
	return v, true
}

// parseDecimal parses a canonical decimal number (no sign, no leading
// zeros) no greater than max.
func parseDecimal(s string, max int) (int, bool) {
	if len(s) == 0 || len(s) > 3 || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, n <= max
}

func parseV6(s string) (uint128, bool) {
	head, tail, compressed := strings.Cut(s, "::")
	if !compressed {
		groups, ok := parseGroups(s)
		if !ok || len(groups) != 8 {
			return uint128{}, false
		}
		return packGroups(groups), true
	}
	left, ok := parseGroups(head)
	if !ok {
		return uint128{}, false
	}
	right, ok := parseGroups(tail)
	if !ok || len(left)+len(right) > 7 {
		return uint128{}, false
	}
	var groups [8]uint16
	copy(groups[:], left)
	copy(groups[8-len(right):], right)
	return packGroups(groups[:]), true
}

// parseGroups parses colon-separated hex groups; the empty string is zero
// groups. A second "::" shows up here as an empty group and is rejected.
func parseGroups(s string) ([]uint16, bool) {
	if s == "" {
		return nil, true
	}
	fields := strings.Split(s, ":")
	if len(fields) > 8 {
		return nil, false
	}
	out := make([]uint16, 0, len(fields))
	for _, f := range fields {
		if len(f) == 0 || len(f) > 4 {
			return nil, false
		}
		g, err := strconv.ParseUint(f, 16, 16)
		if err != nil {
			return nil, false
		}
		out = append(out, uint16(g))
	}
	return out, true
}

func packGroups(groups []uint16) uint128 {
	var u uint128
	for i := 0; i < 4; i++ {
		u.hi = u.hi<<16 | uint64(groups[i])
		u.lo = u.lo<<16 | uint64(groups[i+4])
	}
	return u
}

// Is4 reports whether a lies in the IPv4-mapped block ::ffff:0:0/96.
func (a Addr) Is4() bool { return a.u.hi == 0 && a.u.lo>>32 == v4MappedLo }

// As4 returns the low 32 bits of a as an IPv4 value.
func (a Addr) As4() uint32 { return uint32(a.u.lo) }

// Uint128 returns the high and low halves of the 128-bit value.
func (a Addr) Uint128() (hi, lo uint64) { return a.u.hi, a.u.lo }

// Compare returns -1, 0 or 1 comparing the raw 128-bit values.
func (a Addr) Compare(b Addr) int { return a.u.cmp(b.u) }

// Less reports whether a sorts before b.
func (a Addr) Less(b Addr) bool { return a.u.cmp(b.u) < 0 }

// Bounds returns (a, a), making a single address usable as a Query.
func (a Addr) Bounds() (Addr, Addr) { return a, a }

// Netip returns a as a netip.Addr. IPv4-mapped addresses are unmapped.
func (a Addr) Netip() netip.Addr {
	if a.Is4() {
		return netip.AddrFrom4(a.octets())
	}
	return netip.AddrFrom16(a.bytes16())
}

func (a Addr) netip16() netip.Addr { return netip.AddrFrom16(a.bytes16()) }

func (a Addr) octets() [4]byte {
	v := a.As4()
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func (a Addr) bytes16() [16]byte {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(a.u.hi >> (56 - 8*i))
		b[i+8] = byte(a.u.lo >> (56 - 8*i))
	}
	return b
}

func (a Addr) groups() [8]uint16 {
	var g [8]uint16
	for i := 0; i < 4; i++ {
		g[i] = uint16(a.u.hi >> (48 - 16*i))
		g[i+4] = uint16(a.u.lo >> (48 - 16*i))
	}
	return g
}

// String returns a in dotted-quad form when it is IPv4-mapped, otherwise
// as eight zero-padded hex groups.
func (a Addr) String() string { return a.Format(0) }

// Format renders a according to flags.
func (a Addr) Format(flags FormatFlags) string {
	if flags&Force6 == 0 && a.Is4() {
		o := a.octets()
		return fmt.Sprintf("%d.%d.%d.%d", o[0], o[1], o[2], o[3])
	}
	g := a.groups()
	if flags&Compact == 0 {
		return fmt.Sprintf("%04x:%04x:%04x:%04x:%04x:%04x:%04x:%04x",
			g[0], g[1], g[2], g[3], g[4], g[5], g[6], g[7])
	}

	// longest run of zero groups, leftmost on ties
	zs, zl := -1, 0
	for i := 0; i < 8; {
		if g[i] != 0 {
			i++
			continue
		}
		j := i
		for j < 8 && g[j] == 0 {
			j++
		}
		if j-i > zl {
			zs, zl = i, j-i
		}
		i = j
	}
	if zl < 2 {
		zs = -1
	}

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		if i == zs {
			sb.WriteString("::")
			i += zl - 1
			continue
		}
		if i > 0 && i != zs+zl {
			sb.WriteByte(':')
		}
		sb.WriteString(strconv.FormatUint(uint64(g[i]), 16))
	}
	return sb.String()
}

// ReverseZone returns the reverse DNS name for a, without the trailing
// root dot: "d.c.b.a.in-addr.arpa" for IPv4-mapped addresses, otherwise
// all 32 nibbles reversed under "ip6.arpa".
func (a Addr) ReverseZone() string {
	if a.Is4() {
		o := a.octets()
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa", o[3], o[2], o[1], o[0])
	}
	const hexDigits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(32*2 + len("ip6.arpa"))
	for _, half := range [2]uint64{a.u.lo, a.u.hi} {
		for i := 0; i < 16; i++ {
			sb.WriteByte(hexDigits[(half>>(4*i))&0xf])
			sb.WriteByte('.')
		}
	}
	sb.WriteString("ip6.arpa")
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler using String.
func (a Addr) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler using ParseAddr.
func (a *Addr) UnmarshalText(text []byte) error {
	v, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
