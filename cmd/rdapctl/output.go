package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	rc "github.com/datum-labs/addrdap"
	"github.com/datum-labs/addrdap/ipaddr"
)

type printer struct {
	w      io.Writer
	format string
	flags  ipaddr.FormatFlags
}

type responseView struct {
	Query      string         `json:"query" yaml:"query"`
	Service    string         `json:"service" yaml:"service"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Registrant string         `json:"registrant,omitempty" yaml:"registrant,omitempty"`
	Range      string         `json:"range,omitempty" yaml:"range,omitempty"`
	Data       map[string]any `json:"data" yaml:"data"`
}

type rangeView struct {
	Start    string   `json:"start" yaml:"start"`
	End      string   `json:"end" yaml:"end"`
	Range    string   `json:"range" yaml:"range"`
	Prefixes []string `json:"prefixes" yaml:"prefixes"`
	Size     string   `json:"size" yaml:"size"`
	Reserved bool     `json:"reserved" yaml:"reserved"`
}

type reverseView struct {
	Address string `json:"address" yaml:"address"`
	Zone    string `json:"zone" yaml:"zone"`
}

func (p *printer) response(resp *rc.Response) error {
	v := responseView{
		Query:      resp.Query,
		Service:    resp.Service,
		Name:       resp.DisplayName(),
		Registrant: resp.RegistrantName(),
		Data:       resp.Data,
	}
	if r, ok := resp.Range(); ok {
		v.Range = r.Format(p.flags)
	}
	if p.format != "text" {
		return p.encode(v)
	}

	fmt.Fprintf(p.w, "=== %s ===\n", v.Query)
	fmt.Fprintf(p.w, "service:    %s\n", v.Service)
	if h, _ := resp.Data["handle"].(string); h != "" {
		fmt.Fprintf(p.w, "handle:     %s\n", h)
	}
	if v.Name != "" {
		fmt.Fprintf(p.w, "name:       %s\n", v.Name)
	}
	if v.Registrant != "" {
		fmt.Fprintf(p.w, "registrant: %s\n", v.Registrant)
	}
	if v.Range != "" {
		fmt.Fprintf(p.w, "range:      %s\n", v.Range)
	}
	if status := stringList(resp.Data["status"]); len(status) > 0 {
		fmt.Fprintf(p.w, "status:     %s\n", strings.Join(status, ", "))
	}
	return nil
}

func (p *printer) rangeInfo(r ipaddr.Range) error {
	v := rangeView{
		Start:    r.Start().Format(p.flags),
		End:      r.End().Format(p.flags),
		Range:    r.Format(p.flags),
		Size:     r.Size().String(),
		Reserved: ipaddr.IsReserved(r),
	}
	for _, pfx := range r.Prefixes() {
		v.Prefixes = append(v.Prefixes, pfx.String())
	}
	if p.format != "text" {
		return p.encode(v)
	}

	fmt.Fprintf(p.w, "range:    %s\n", v.Range)
	fmt.Fprintf(p.w, "start:    %s\n", v.Start)
	fmt.Fprintf(p.w, "end:      %s\n", v.End)
	fmt.Fprintf(p.w, "size:     %s\n", v.Size)
	fmt.Fprintf(p.w, "reserved: %t\n", v.Reserved)
	fmt.Fprintln(p.w, "prefixes:")
	for _, s := range v.Prefixes {
		fmt.Fprintf(p.w, "  - %s\n", s)
	}
	return nil
}

func (p *printer) reverse(a ipaddr.Addr) error {
	v := reverseView{Address: a.Format(p.flags), Zone: a.ReverseZone()}
	if p.format != "text" {
		return p.encode(v)
	}
	fmt.Fprintln(p.w, v.Zone)
	return nil
}

func (p *printer) encode(v any) error {
	switch p.format {
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func stringList(v any) []string {
	arr, _ := v.([]any)
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
