package voice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Component is a single voice identity with its share of the blend.
type Component struct {
	ID     string
	Weight float64
}

// Blend is a validated, normalized set of voice components. Weights sum
// to 1.0 and components are ordered by identifier so that equivalent
// blends written in any order compare equal.
type Blend struct {
	Components []Component
}

// SyntaxError reports an invalid voice-blend specification. It is fatal
// to the request that carried the spec, never to the process.
type SyntaxError struct {
	Spec   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid voice blend %q: %s", e.Spec, e.Reason)
}

// ParseBlend parses a blend specification of the form
//
//	component ( "+" component )*
//	component = identifier [ "(" weight ")" ]
//
// An omitted weight defaults to 1. Weights are normalized so they sum
// to 1.0. Whitespace around separators and inside parentheses is
// tolerated. A bare identifier parses to a single-component blend with
// weight 1.0.
func ParseBlend(spec string) (Blend, error) {
	if strings.TrimSpace(spec) == "" {
		return Blend{}, &SyntaxError{Spec: spec, Reason: "empty specification"}
	}

	parts := strings.Split(spec, "+")
	components := make([]Component, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	total := 0.0

	for _, part := range parts {
		id, weight, err := parseComponent(spec, part)
		if err != nil {
			return Blend{}, err
		}
		if seen[id] {
			return Blend{}, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("duplicate voice %q", id)}
		}
		seen[id] = true
		components = append(components, Component{ID: id, Weight: weight})
		total += weight
	}

	for i := range components {
		components[i].Weight /= total
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i].ID < components[j].ID
	})

	return Blend{Components: components}, nil
}

func parseComponent(spec, part string) (string, float64, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return "", 0, &SyntaxError{Spec: spec, Reason: "empty component"}
	}

	open := strings.Index(part, "(")
	if open < 0 {
		if strings.Contains(part, ")") {
			return "", 0, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("unmatched ')' in %q", part)}
		}
		return part, 1.0, nil
	}

	id := strings.TrimSpace(part[:open])
	if id == "" {
		return "", 0, &SyntaxError{Spec: spec, Reason: "component has a weight but no voice identifier"}
	}

	rest := part[open+1:]
	close := strings.Index(rest, ")")
	if close < 0 {
		return "", 0, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("unterminated weight in %q", part)}
	}
	if strings.TrimSpace(rest[close+1:]) != "" {
		return "", 0, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("trailing characters after weight in %q", part)}
	}

	raw := strings.TrimSpace(rest[:close])
	weight, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("weight %q is not a number", raw)}
	}
	if weight <= 0 {
		return "", 0, &SyntaxError{Spec: spec, Reason: fmt.Sprintf("weight %v is not positive", weight)}
	}

	return id, weight, nil
}

// Single reports whether the blend degenerates to one voice.
func (b Blend) Single() bool {
	return len(b.Components) == 1
}

// Canonical renders the blend in its canonical form: components ordered
// by identifier with normalized weights at four decimal places. A
// single-voice blend renders as the bare identifier. This form feeds
// the cache fingerprint, so equivalent blends must render identically.
func (b Blend) Canonical() string {
	if b.Single() {
		return b.Components[0].ID
	}
	parts := make([]string, len(b.Components))
	for i, c := range b.Components {
		parts[i] = fmt.Sprintf("%s(%.4f)", c.ID, c.Weight)
	}
	return strings.Join(parts, "+")
}

// EngineSpec renders the blend the way the synthesis engine expects it:
// identifiers joined by "+" with raw normalized weights.
func (b Blend) EngineSpec() string {
	if b.Single() {
		return b.Components[0].ID
	}
	parts := make([]string, len(b.Components))
	for i, c := range b.Components {
		parts[i] = fmt.Sprintf("%s(%g)", c.ID, c.Weight)
	}
	return strings.Join(parts, "+")
}

// String implements fmt.Stringer.
func (b Blend) String() string {
	return b.Canonical()
}
