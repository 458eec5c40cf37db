package ipaddr

import "errors"

var (
	// ErrInvalidAddressFormat is returned when text is neither a strict
	// dotted-quad IPv4 address nor a colon-hex IPv6 address.
	ErrInvalidAddressFormat = errors.New("ipaddr: invalid address format")

	// ErrInvalidRangeFormat is returned when text is not valid CIDR or
	// start-end range notation.
	ErrInvalidRangeFormat = errors.New("ipaddr: invalid range format")

	// ErrInvertedRange is returned when an explicit range has start > end.
	ErrInvertedRange = errors.New("ipaddr: range start is greater than end")
)
