package match

import (
	"strconv"
	"strings"

	"github.com/yoctobom/cli/internal/kb"
)

// Match strengths, from no match to exact.
const (
	StrengthNone    = 0
	StrengthNear    = 1 // same prefix, final numeric segment within NearDistance
	StrengthPartial = 2 // one version contains the other at its start
	StrengthExact   = 3
)

// NearDistance is the largest difference between final numeric version
// segments that PartialStrategy still accepts.
const NearDistance = 2

// VersionMatch is the outcome of matching a target version against the
// versions of one KB component.
type VersionMatch struct {
	Name     string // KB version name, as returned by the KB
	URL      string
	Strength int
}

// Found reports whether the match has a positive strength.
func (m VersionMatch) Found() bool {
	return m.Strength > StrengthNone
}

// Exact reports whether the match is terminal.
func (m VersionMatch) Exact() bool {
	return m.Strength == StrengthExact
}

// Strategy picks the best version for target among versions.
type Strategy interface {
	Match(versions []kb.Version, target string) VersionMatch
}

var versionSeparators = strings.NewReplacer("-", ".", "_", ".")

// NormalizeVersion maps '-' and '_' to '.'.
func NormalizeVersion(v string) string {
	return versionSeparators.Replace(v)
}

// ExactStrategy matches versions equal after normalization, or equal once a
// leading 'v' or 'V' is removed from the KB version. The first KB version in
// list order that matches wins.
type ExactStrategy struct{}

// Match implements Strategy.
func (ExactStrategy) Match(versions []kb.Version, target string) VersionMatch {
	local := NormalizeVersion(target)
	for _, v := range versions {
		name := NormalizeVersion(v.Name)
		if name == local || (len(name) > 2 && (name[0] == 'v' || name[0] == 'V') && name[1:] == local) {
			return VersionMatch{Name: v.Name, URL: v.URL, Strength: StrengthExact}
		}
	}
	return VersionMatch{}
}

// PartialStrategy scores versions by their longest common substring with the
// target:
//
//   - strength 2 when the KB version is a prefix of the target,
//   - strength 2 when the target appears inside the KB version with no digit
//     before it (3 if the only leading character is 'v'),
//   - strength 1 when both share a prefix of more than two characters that
//     reaches the final segment and the final numeric segments differ by at
//     most NearDistance.
//
// Among equal strengths the longer KB version wins.
type PartialStrategy struct{}

// Match implements Strategy.
func (PartialStrategy) Match(versions []kb.Version, target string) VersionMatch {
	local := NormalizeVersion(target)
	var best VersionMatch
	bestLen := 0

	for _, v := range versions {
		name := NormalizeVersion(v.Name)
		strength := partialStrength(name, local)
		if strength == StrengthNone {
			continue
		}
		better := strength > best.Strength ||
			(strength == best.Strength && len(name) > bestLen) ||
			(strength == StrengthNear && best.Strength == StrengthNear && len(name) == bestLen)
		if !better {
			continue
		}
		best = VersionMatch{Name: v.Name, URL: v.URL, Strength: strength}
		bestLen = len(name)
		if best.Exact() {
			break
		}
	}
	return best
}

func partialStrength(kbVersion, local string) int {
	if kbVersion == "" || local == "" {
		return StrengthNone
	}
	a, b, size := LongestCommonSubstring(kbVersion, local)

	switch {
	case a == 0 && b == 0 && size == len(kbVersion):
		return StrengthPartial

	case b == 0 && size == len(local):
		if strings.ContainsAny(kbVersion[:a], "0123456789") {
			return StrengthNone
		}
		if a == 1 && (kbVersion[0] == 'v' || kbVersion[0] == 'V') {
			return StrengthExact
		}
		return StrengthPartial

	case a == 0 && b == 0 && size > 2:
		if d := size - strings.LastIndex(local, "."); d < 0 || d > 2 {
			return StrengthNone
		}
		kbFinal, okKB := finalNumericSegment(kbVersion)
		localFinal, okLocal := finalNumericSegment(local)
		if !okKB || !okLocal {
			return StrengthNone
		}
		diff := kbFinal - localFinal
		if diff < 0 {
			diff = -diff
		}
		if diff <= NearDistance {
			return StrengthNear
		}
	}
	return StrengthNone
}

func finalNumericSegment(v string) (int, bool) {
	seg := v[strings.LastIndex(v, ".")+1:]
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LongestCommonSubstring returns the start in a, the start in b and the size
// of the longest block common to both. Ties resolve to the block starting
// earliest in a, then earliest in b.
func LongestCommonSubstring(a, b string) (i, j, size int) {
	if a == "" || b == "" {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for x := 1; x <= len(a); x++ {
		for y := 1; y <= len(b); y++ {
			if a[x-1] == b[y-1] {
				cur[y] = prev[y-1] + 1
				if cur[y] > size {
					size = cur[y]
					i, j = x-size, y-size
				}
			} else {
				cur[y] = 0
			}
		}
		prev, cur = cur, prev
	}
	return i, j, size
}

// Chain tries each strategy in order. An exact match ends the chain;
// otherwise the strongest result wins, earlier strategies first on ties.
type Chain []Strategy

// Match implements Strategy.
func (c Chain) Match(versions []kb.Version, target string) VersionMatch {
	var best VersionMatch
	for _, s := range c {
		m := s.Match(versions, target)
		if m.Exact() {
			return m
		}
		if m.Strength > best.Strength {
			best = m
		}
	}
	return best
}

// NewStrategy returns the exact strategy, followed by the partial strategy
// when partial is true.
func NewStrategy(partial bool) Strategy {
	if !partial {
		return ExactStrategy{}
	}
	return Chain{ExactStrategy{}, PartialStrategy{}}
}
