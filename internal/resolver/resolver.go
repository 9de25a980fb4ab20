// Package resolver finds the KB component and version for a manifest entry by
// searching the KB for each name variant until an exact match is found or the
// variants run out.
package resolver

import (
	"context"
	"strings"

	"github.com/yoctobom/cli/internal/kb"
	"github.com/yoctobom/cli/internal/lookup"
	"github.com/yoctobom/cli/internal/match"
	"github.com/yoctobom/cli/internal/output"
)

// DefaultSearchLimit is the number of search hits requested per name.
const DefaultSearchLimit = 20

// State is the resolution state of one manifest entry.
type State int

const (
	// StateSearching means name variants remain to be tried.
	StateSearching State = iota
	// StateMatched means an exact match was found.
	StateMatched
	// StateExhausted means every variant was tried without an exact match.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateMatched:
		return "matched"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the best match found for a manifest entry. The zero Result means
// no match.
type Result struct {
	ComponentName string // KB component name
	Version       string // KB version name
	Strength      int
	SourceURL     string
	ComponentURL  string
	VersionURL    string
}

// Found reports whether any variant matched.
func (r Result) Found() bool {
	return r.Strength > match.StrengthNone
}

// Exact reports whether the match is exact.
func (r Result) Exact() bool {
	return r.Strength == match.StrengthExact
}

// Options configures a Resolver.
type Options struct {
	// Rules supplies name replacements. May be nil.
	Rules match.Renamer

	// Strategy matches versions. Nil means match.ExactStrategy.
	Strategy match.Strategy

	// SearchLimit caps the hits per search. Zero means DefaultSearchLimit.
	SearchLimit int
}

// Resolver resolves manifest entries against the KB. It keeps per-run memory
// of names that the KB does not know and must not be shared between runs or
// goroutines.
type Resolver struct {
	client   kb.Client
	cache    *lookup.Cache
	rules    match.Renamer
	strategy match.Strategy
	limit    int

	noHits   map[string]struct{} // searched names with zero hits
	unknown  map[string]struct{} // manifest names for which no variant had hits
	searches int
}

// New returns a Resolver. cache may be nil.
func New(client kb.Client, cache *lookup.Cache, opts Options) *Resolver {
	if cache == nil {
		cache = lookup.NewCache()
	}
	if opts.Strategy == nil {
		opts.Strategy = match.ExactStrategy{}
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	return &Resolver{
		client:   client,
		cache:    cache,
		rules:    opts.Rules,
		strategy: opts.Strategy,
		limit:    opts.SearchLimit,
		noHits:   make(map[string]struct{}),
		unknown:  make(map[string]struct{}),
	}
}

// Searches returns the number of KB name searches issued so far.
func (r *Resolver) Searches() int {
	return r.searches
}

// Resolve searches the KB for name at version. Each name variant is tried in
// turn and the strongest match is kept; an exact match ends the search. KB
// errors are logged and treated as no match.
func (r *Resolver) Resolve(ctx context.Context, name, version string) Result {
	if _, ok := r.unknown[name]; ok {
		output.Debug("component already known to be absent from KB", "component", name)
		return Result{}
	}

	var best Result
	absent := true
	state := StateSearching
	variants := match.NewNormalizer(name, r.rules)

	for state == StateSearching {
		if err := ctx.Err(); err != nil {
			output.Warn("search cancelled", "component", name, "err", err)
			return best
		}

		variant, ok := variants.Next()
		if !ok {
			state = StateExhausted
			break
		}

		output.Info("searching KB for component", "name", variant)
		res := r.searchVariant(ctx, variant, version)
		if _, ok := r.noHits[variant]; !ok {
			absent = false
		}
		if res.Found() {
			output.Info("matched version", "version", res.Version, "strength", res.Strength)
		}
		if res.Strength > best.Strength {
			best = res
		}
		if res.Exact() {
			state = StateMatched
		}
	}

	output.Debug("resolution finished", "component", variants.Original(), "version", version, "state", state, "strength", best.Strength)
	if !best.Found() && absent {
		r.unknown[name] = struct{}{}
	}
	return best
}

// searchVariant looks up one name variant, first in the no-hit set, then in
// the cache and finally in the KB.
func (r *Resolver) searchVariant(ctx context.Context, variant, version string) Result {
	if _, ok := r.noHits[variant]; ok {
		return Result{}
	}

	if verURL, ok := r.cache.VersionURL(variant, version); ok {
		if verURL == lookup.NoVersionMatch {
			return Result{}
		}
		return Result{
			ComponentName: variant,
			Version:       version,
			Strength:      match.StrengthExact,
			ComponentURL:  ComponentURLFromVersionURL(verURL),
			VersionURL:    verURL,
		}
	}

	r.searches++
	candidates, err := r.client.SearchByName(ctx, variant, r.limit)
	if err != nil {
		output.Error("KB search failed", "name", variant, "err", err)
		return Result{}
	}
	if len(candidates) == 0 {
		r.noHits[variant] = struct{}{}
		return Result{}
	}

	res := r.matchCandidates(ctx, candidates, version)
	if !res.Found() {
		if base, _, cut := strings.Cut(version, "+"); cut {
			output.Debug("retrying without version suffix", "version", base)
			res = r.matchCandidates(ctx, candidates, base)
		}
	}
	return res
}

func (r *Resolver) matchCandidates(ctx context.Context, candidates []kb.Candidate, version string) Result {
	var best Result
	for _, c := range candidates {
		res, err := r.MatchComponent(ctx, c.ComponentURL, version)
		if err != nil {
			output.Error("failed to retrieve component", "url", c.ComponentURL, "err", err)
			continue
		}
		if res.Strength > best.Strength {
			best = res
		}
		if best.Exact() {
			break
		}
	}
	return best
}

// MatchComponent matches version against the versions of the KB component at
// compURL. A zero Result with a nil error means the component has no
// matching version.
func (r *Resolver) MatchComponent(ctx context.Context, compURL, version string) (Result, error) {
	comp, err := r.client.GetComponent(ctx, compURL)
	if err != nil {
		return Result{}, err
	}
	versions, err := r.client.GetVersions(ctx, comp.VersionsURL)
	if err != nil {
		return Result{}, err
	}

	m := r.strategy.Match(versions, version)
	output.Debug("version match", "component", comp.Name, "version", version, "kbVersion", m.Name, "strength", m.Strength)
	if !m.Found() {
		return Result{}, nil
	}
	return Result{
		ComponentName: comp.Name,
		Version:       m.Name,
		Strength:      m.Strength,
		SourceURL:     lookup.SanitizeField(comp.SourceURL),
		ComponentURL:  compURL,
		VersionURL:    m.URL,
	}, nil
}

// ComponentURLFromVersionURL drops the trailing "/versions/<id>" of a KB
// version URL.
func ComponentURLFromVersionURL(versionURL string) string {
	u := versionURL
	for range 2 {
		i := strings.LastIndex(u, "/")
		if i < 0 {
			return versionURL
		}
		u = u[:i]
	}
	return u
}
