package rdapclient

import (
	"encoding/json"
	"errors"
)

// Object is a union interface implemented by all object classes.
type Object interface {
	GetObjectClassName() string
}

// ParseObject inspects objectClassName and returns a typed object per RFC 9083.
func ParseObject(m map[string]any) (Object, error) {
	if m == nil {
		return nil, errors.New("nil RDAP object")
	}
	ocn, _ := m["objectClassName"].(string)
	switch lower(ocn) {
	case "entity":
		return decodeAs[Entity](m)
	case "domain":
		return decodeAs[Domain](m)
	case "nameserver":
		return decodeAs[Nameserver](m)
	case "ip network":
		return decodeAs[IPNetwork](m)
	case "autnum":
		return decodeAs[Autnum](m)
	default:
		return nil, errors.New("unknown RDAP objectClassName: " + ocn)
	}
}

type validObject interface {
	Object
	Validate() bool
}

func decodeAs[T any, P interface {
	*T
	validObject
}](m map[string]any) (Object, error) {
	p := P(new(T))
	if err := decodeInto(m, p); err != nil {
		return nil, err
	}
	if !p.Validate() {
		return nil, errors.New("invalid " + p.GetObjectClassName() + " objectClassName")
	}
	return p, nil
}

func decodeInto(m map[string]any, v any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
