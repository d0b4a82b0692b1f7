package sourcename

import (
	"fmt"
	"sort"
	"strings"

	"tfbpdash/domain/core"
)

// Datatype separates binding sources from perturbation-response sources
type Datatype string

const (
	Binding              Datatype = "binding"
	PerturbationResponse Datatype = "perturbation_response"
)

// ParseDatatype parses a datatype name
func ParseDatatype(s string) (Datatype, error) {
	switch Datatype(s) {
	case Binding, PerturbationResponse:
		return Datatype(s), nil
	}
	return "", core.NewConfigurationError(core.ErrUnknownDatatype, s)
}

// Registry maps internal source keys to display labels. It is built once and
// passed to whoever needs it; the maps are never mutated after construction.
type Registry struct {
	binding      map[string]string
	perturbation map[string]string
}

// DefaultBindingSources are the binding assays known to the dashboard
func DefaultBindingSources() map[string]string {
	return map[string]string{
		"harbison_chip":          "ChIP-chip",
		"chipexo_pugh_allevents": "ChIP-exo",
		"brent_nf_cc":            "Calling Cards",
	}
}

// DefaultPerturbationSources are the perturbation assays known to the dashboard
func DefaultPerturbationSources() map[string]string {
	return map[string]string{
		"mcisaac_oe":      "Overexpression",
		"kemmeren_tfko":   "2014 TFKO",
		"hu_reimann_tfko": "2007 TFKO",
	}
}

// NewRegistry copies the given mappings into a new registry
func NewRegistry(binding, perturbation map[string]string) *Registry {
	return &Registry{
		binding:      copyMapping(binding),
		perturbation: copyMapping(perturbation),
	}
}

// DefaultRegistry returns a registry with the built-in source labels
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultBindingSources(), DefaultPerturbationSources())
}

// Lookup returns a copy of the key → label mapping for one datatype, or both
// merged when datatype is empty
func (r *Registry) Lookup(datatype Datatype) (map[string]string, error) {
	switch datatype {
	case Binding:
		return copyMapping(r.binding), nil
	case PerturbationResponse:
		return copyMapping(r.perturbation), nil
	case "":
		merged := copyMapping(r.binding)
		for k, v := range r.perturbation {
			merged[k] = v
		}
		return merged, nil
	}
	return nil, core.NewConfigurationError(core.ErrUnknownDatatype, datatype)
}

// Reverse returns the label → key mapping for one datatype
func (r *Registry) Reverse(datatype Datatype) (map[string]string, error) {
	forward, err := r.Lookup(datatype)
	if err != nil {
		return nil, err
	}
	reversed := make(map[string]string, len(forward))
	for k, v := range forward {
		reversed[v] = k
	}
	return reversed, nil
}

// DisplayName returns the label of key and whether it was registered.
// Unregistered keys come back unchanged.
func (r *Registry) DisplayName(datatype Datatype, key string) (string, bool) {
	var m map[string]string
	switch datatype {
	case Binding:
		m = r.binding
	case PerturbationResponse:
		m = r.perturbation
	default:
		if v, ok := r.binding[key]; ok {
			return v, true
		}
		m = r.perturbation
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	return key, false
}

// Keys returns the registered keys of a datatype in sorted order
func (r *Registry) Keys(datatype Datatype) []string {
	m, err := r.Lookup(datatype)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseMapping parses "key=Label,key2=Label 2" into a mapping
func ParseMapping(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		key, label, ok := strings.Cut(pair, "=")
		key, label = strings.TrimSpace(key), strings.TrimSpace(label)
		if !ok || key == "" || label == "" {
			return nil, fmt.Errorf("invalid source name mapping %q: want key=label", pair)
		}
		out[key] = label
	}
	return out, nil
}

func copyMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
