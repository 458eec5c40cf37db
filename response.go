package rdapclient

import (
	"regexp"
	"slices"
	"strings"

	"github.com/datum-labs/addrdap/ipaddr"
)

// Response is the result of a lookup. Data is the decoded RDAP object as
// returned by the service; it may be shared with other callers through the
// service cache and must be treated as read-only.
type Response struct {
	// Query is the normalised name or the address/range text that was looked up.
	Query string
	// Target is the parsed address or range, nil for domain lookups.
	Target ipaddr.Query
	// Service is the base URL of the RDAP service that answered.
	Service string
	Data    map[string]any
}

var companySuffix = regexp.MustCompile(`(?i)(?:\s+|,\s*)(?:llc|l\.l\.c\.|ltd\.?|inc\.?)$`)

// RegistrantName returns the formatted name ("fn") from the vCard of the
// first entity with the registrant role, without a trailing company
// suffix such as ", LLC" or " Inc.". It is "" when there is none.
func (r *Response) RegistrantName() string {
	e := r.findEntityByRole("registrant")
	if e == nil {
		return ""
	}
	fn := vcardText(e["vcardArray"], "fn")
	return companySuffix.ReplaceAllString(fn, "")
}

// DisplayName is the best short label for the record: the registrant name,
// else the object's name, else its handle.
func (r *Response) DisplayName() string {
	if n := r.RegistrantName(); n != "" {
		return n
	}
	if n, _ := r.Data["name"].(string); n != "" {
		return n
	}
	h, _ := r.Data["handle"].(string)
	return h
}

// Object decodes Data into its RFC 9083 object class.
func (r *Response) Object() (Object, error) { return ParseObject(r.Data) }

// Range returns the network range the response declares through
// startAddress and endAddress, if both are present and valid.
func (r *Response) Range() (ipaddr.Range, bool) { return responseRange(r.Data) }

func (r *Response) findEntityByRole(role string) map[string]any {
	entities, _ := r.Data["entities"].([]any)
	for _, v := range entities {
		e, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if slices.Contains(toStringSlice(e["roles"]), role) {
			return e
		}
	}
	return nil
}

// vcardText returns the text value of the first property called name in a
// jCard (RFC 7095): ["vcard", [[name, params, type, value], ...]].
func vcardText(card any, name string) string {
	arr, ok := card.([]any)
	if !ok || len(arr) < 2 {
		return ""
	}
	props, _ := arr[1].([]any)
	for _, p := range props {
		prop, ok := p.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		if n, _ := prop[0].(string); n != name {
			continue
		}
		s, _ := prop[3].(string)
		return strings.TrimSpace(s)
	}
	return ""
}

func responseRange(data map[string]any) (ipaddr.Range, bool) {
	start, _ := data["startAddress"].(string)
	end, _ := data["endAddress"].(string)
	if start == "" || end == "" {
		return ipaddr.Range{}, false
	}
	block, err := ipaddr.RangeFromBounds(start, end)
	if err != nil {
		return ipaddr.Range{}, false
	}
	return block, true
}
