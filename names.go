package rdapclient

import (
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// normalizeDomain returns name in lower-case ASCII without a trailing root
// dot. Internationalised names are converted to punycode; names IDNA
// rejects (underscores, for instance) are only lower-cased.
func normalizeDomain(name string) string {
	name = strings.TrimSpace(name)
	if dns.IsFqdn(name) {
		name = strings.TrimSuffix(name, ".")
	}
	if ascii, err := idna.Lookup.ToASCII(name); err == nil && ascii != "" {
		name = ascii
	}
	return strings.ToLower(name)
}

// parentDomains lists the proper parents of name that still have at least
// two labels, nearest first: a.b.example.com -> b.example.com, example.com.
func parentDomains(name string) []string {
	labels := dns.SplitDomainName(name)
	var out []string
	for i := 1; i+2 <= len(labels); i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}
