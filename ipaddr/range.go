package ipaddr

import (
	"fmt"
	"math/big"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// Query is an address or an address range, the two things an RDAP ip
// lookup accepts.
type Query interface {
	// Bounds returns the first and last address covered, inclusive.
	Bounds() (start, end Addr)
	String() string
}

var (
	_ Query = Addr{}
	_ Query = Range{}
)

// Range is an inclusive span of addresses [Start, End] with Start <= End.
type Range struct {
	start Addr
	end   Addr
}

// RangeFrom returns the range [start, end], or ErrInvertedRange when
// start > end.
func RangeFrom(start, end Addr) (Range, error) {
	if start.Compare(end) > 0 {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrInvertedRange, start, end)
	}
	return Range{start, end}, nil
}

// RangeFromBounds parses both ends independently and returns [start, end].
func RangeFromBounds(startText, endText string) (Range, error) {
	start, err := ParseAddr(startText)
	if err != nil {
		return Range{}, err
	}
	end, err := ParseAddr(endText)
	if err != nil {
		return Range{}, err
	}
	return RangeFrom(start, end)
}

// ParseCIDR parses "address/prefix". The prefix is 0-32 for dotted-quad
// addresses and 0-128 for IPv6 text, written without leading zeros; it
// counts host bits from the right of the unified 128-bit value.
func ParseCIDR(s string) (Range, error) {
	addrText, bitsText, ok := strings.Cut(s, "/")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, s)
	}

	var (
		base Addr
		host uint128
	)
	if v4, ok := parseV4(addrText); ok {
		n, ok := parseDecimal(bitsText, 32)
		if !ok {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, s)
		}
		base = AddrFrom4(v4)
		host = uint128{0, 0xffffffff}.shr(uint(n))
	} else if u, ok := parseV6(addrText); ok {
		n, ok := parseDecimal(bitsText, 128)
		if !ok {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, s)
		}
		base = Addr{u}
		host = maxUint128.shr(uint(n))
	} else {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, s)
	}

	return Range{
		start: Addr{base.u.and(host.not())},
		end:   Addr{base.u.or(host)},
	}, nil
}

// MustParseCIDR is like ParseCIDR but panics on error.
func MustParseCIDR(s string) Range {
	r, err := ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRange parses CIDR notation ("10.0.0.0/8") or dash notation
// ("10.0.0.1-10.0.0.9").
func ParseRange(s string) (Range, error) {
	if strings.Contains(s, "/") {
		return ParseCIDR(s)
	}
	if startText, endText, ok := strings.Cut(s, "-"); ok {
		return RangeFromBounds(startText, endText)
	}
	return Range{}, fmt.Errorf("%w: %q", ErrInvalidRangeFormat, s)
}

// ParseQuery parses range text (containing "/" or "-") as a Range and
// anything else as an Addr.
func ParseQuery(s string) (Query, error) {
	if strings.ContainsAny(s, "/-") {
		return ParseRange(s)
	}
	return ParseAddr(s)
}

// RangeFromPrefix converts a netip.Prefix. IPv4 prefixes map into the
// IPv4-mapped block.
func RangeFromPrefix(p netip.Prefix) (Range, error) {
	if !p.IsValid() {
		return Range{}, fmt.Errorf("%w: %s", ErrInvalidRangeFormat, p)
	}
	r := netipx.RangeOfPrefix(p.Masked())
	return RangeFrom(AddrFromNetip(r.From()), AddrFromNetip(r.To()))
}

// Start returns the first address of r.
func (r Range) Start() Addr { return r.start }

// End returns the last address of r.
func (r Range) End() Addr { return r.end }

// Bounds returns (Start, End).
func (r Range) Bounds() (Addr, Addr) { return r.start, r.end }

// Contains reports whether every address of q lies within r.
func (r Range) Contains(q Query) bool {
	if q == nil {
		return false
	}
	start, end := q.Bounds()
	return r.start.Compare(start) <= 0 && end.Compare(r.end) <= 0
}

// Compare orders ranges by start, then end.
func (r Range) Compare(o Range) int {
	if c := r.start.Compare(o.start); c != 0 {
		return c
	}
	return r.end.Compare(o.end)
}

// Is4 reports whether both ends are IPv4-mapped.
func (r Range) Is4() bool { return r.start.Is4() && r.end.Is4() }

// hostBits returns start^end when r is a bit-aligned block, i.e. start has
// the low bits clear and end has them set.
func (r Range) hostBits() (uint128, bool) {
	h := r.start.u.xor(r.end.u)
	if !h.isLowMask() || !r.start.u.and(h).isZero() {
		return uint128{}, false
	}
	return h, true
}

// Bits returns the prefix length when r is a CIDR block: counted from the
// IPv4 mapping when Start is IPv4-mapped, otherwise over 128 bits.
func (r Range) Bits() (int, bool) {
	h, ok := r.hostBits()
	if !ok {
		return 0, false
	}
	bits := h.leadingZeros()
	if r.start.Is4() {
		bits -= 96
	}
	return bits, true
}

// String returns the canonical form: "start/bits" when r is a CIDR block,
// otherwise "start-end", with both ends in IPv6 form unless both are
// IPv4-mapped.
func (r Range) String() string { return r.Format(0) }

// Format is like String but renders addresses with flags.
func (r Range) Format(flags FormatFlags) string {
	if bits, ok := r.Bits(); ok {
		return fmt.Sprintf("%s/%d", r.start.Format(flags), bits)
	}
	if !r.Is4() {
		flags |= Force6
	}
	return r.start.Format(flags) + "-" + r.end.Format(flags)
}

// Prefix returns r as a netip.Prefix when r is a single CIDR block.
func (r Range) Prefix() (netip.Prefix, bool) {
	bits, ok := r.Bits()
	if !ok {
		return netip.Prefix{}, false
	}
	if r.start.Is4() {
		return netip.PrefixFrom(r.start.Netip(), bits), true
	}
	return netip.PrefixFrom(r.start.netip16(), bits), true
}

// IPRange returns r as a netipx.IPRange, in the IPv4 family when both ends
// are IPv4-mapped and in the IPv6 family otherwise.
func (r Range) IPRange() netipx.IPRange {
	if r.Is4() {
		return netipx.IPRangeFrom(r.start.Netip(), r.end.Netip())
	}
	return r.ipRange16()
}

// ipRange16 keeps IPv4-mapped addresses in the IPv6 family so that every
// range lives in the same unified space.
func (r Range) ipRange16() netipx.IPRange {
	return netipx.IPRangeFrom(r.start.netip16(), r.end.netip16())
}

// Prefixes splits r into the minimal list of CIDR blocks that cover it
// exactly, in ascending order.
func (r Range) Prefixes() []netip.Prefix {
	return r.IPRange().Prefixes()
}

// Size returns the number of addresses in r.
func (r Range) Size() *big.Int {
	size := r.end.u.bigInt()
	size.Sub(size, r.start.u.bigInt())
	return size.Add(size, big.NewInt(1))
}

// MarshalText implements encoding.TextMarshaler using String.
func (r Range) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler using ParseRange.
func (r *Range) UnmarshalText(text []byte) error {
	v, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
