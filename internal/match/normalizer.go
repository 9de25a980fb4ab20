// Package match generates alternate spellings of manifest component names and
// picks the KB version that best matches a manifest version.
package match

import "strings"

// Renamer maps a manifest component name to its configured replacement.
type Renamer interface {
	Rename(name string) (string, bool)
}

// Normalizer yields the sequence of names to search for one manifest
// component. The first name is the replacement (or the original name). The
// "::" and space spellings follow it only while its length still equals the
// original name's length, so a longer or shorter replacement gets none. Then the
// trailing "-segment", or failing that ".segment", is stripped repeatedly
// until nothing is left to strip.
//
// A Normalizer is not safe for concurrent use.
type Normalizer struct {
	original string
	current  string
	pending  []string
	started  bool
	done     bool
}

// NewNormalizer returns a Normalizer for name. rules may be nil.
func NewNormalizer(name string, rules Renamer) *Normalizer {
	base := name
	if rules != nil {
		if replacement, ok := rules.Rename(name); ok {
			base = replacement
		}
	}
	return &Normalizer{original: name, current: base}
}

// Original returns the manifest name the Normalizer was built from.
func (n *Normalizer) Original() string {
	return n.original
}

// Next returns the next name variant. ok is false once the variants are
// exhausted.
func (n *Normalizer) Next() (name string, ok bool) {
	if len(n.pending) > 0 {
		name = n.pending[0]
		n.pending = n.pending[1:]
		return name, true
	}
	if n.done {
		return "", false
	}

	if !n.started {
		n.started = true
		if len(n.current) == len(n.original) {
			n.pending = separatorVariants(n.current)
		}
		return n.current, true
	}

	stripped, ok := StripSegment(n.current)
	if !ok {
		n.done = true
		return "", false
	}
	n.current = stripped
	return stripped, true
}

// Variants drains the Normalizer and returns every remaining variant.
func (n *Normalizer) Variants() []string {
	var out []string
	for {
		name, ok := n.Next()
		if !ok {
			return out
		}
		out = append(out, name)
	}
}

func separatorVariants(name string) []string {
	if !strings.ContainsAny(name, "-_") {
		return nil
	}
	colons := strings.NewReplacer("-", "::", "_", "::").Replace(name)
	spaces := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return []string{colons, spaces}
}

// StripSegment removes the last "-segment" of name, or the last ".segment"
// when name has no hyphen. ok is false when nothing could be removed or the
// result would be empty.
func StripSegment(name string) (string, bool) {
	if i := strings.LastIndex(name, "-"); i >= 0 {
		if i == 0 {
			return "", false
		}
		return name[:i], true
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], true
	}
	return "", false
}
