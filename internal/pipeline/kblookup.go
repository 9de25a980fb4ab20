package pipeline

import (
	"context"
	"fmt"

	"github.com/yoctobom/cli/internal/kb"
	"github.com/yoctobom/cli/internal/lookup"
	"github.com/yoctobom/cli/internal/manifest"
	"github.com/yoctobom/cli/internal/match"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/resolver"
)

// lookupRun holds the state of one kblookup invocation.
type lookupRun struct {
	opts     LookupOptions
	cache    *lookup.Cache
	resolver *resolver.Resolver
	progress *output.Progress
	stats    *LookupStats
}

// RunLookup resolves every entry of the build manifest and records the
// results in the output lookup file.
//
// Entries already resolved in the input lookup file are not searched again.
// A known component with an unseen version is first matched against its
// cached component URLs and only then searched by name. When more than
// MaxNew components needed a search the run stops with a *LimitError; the
// stats and the output file are valid up to that point.
func RunLookup(ctx context.Context, client kb.Client, progress *output.Progress, opts LookupOptions) (*LookupStats, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	progress.Println(fmt.Sprintf("Reading replacement file %s ...", opts.RulesFile))
	rules, err := manifest.LoadRules(opts.RulesFile)
	if err != nil {
		return nil, err
	}

	cache := lookup.NewCache()
	if opts.InputLookup != "" {
		mirror := ""
		if opts.Append {
			mirror = opts.OutputLookup
			output.Info("copying input lookup file", "from", opts.InputLookup, "to", opts.OutputLookup)
		}
		progress.Println(fmt.Sprintf("Reading input KB lookup file %s ...", opts.InputLookup))
		res, err := cache.Import(opts.InputLookup, mirror)
		if err != nil {
			return nil, err
		}
		progress.Println(fmt.Sprintf("Processed %d entries from %s", res.Records, opts.InputLookup))
		output.Info("loaded lookup file", "file", opts.InputLookup,
			"components", cache.Len(), "noMatch", res.NoMatch, "invalid", res.Invalid)
	}

	entries, err := manifest.ReadFile(opts.ManifestFile, rules)
	if err != nil {
		return nil, err
	}

	run := &lookupRun{
		opts:  opts,
		cache: cache,
		resolver: resolver.New(client, cache, resolver.Options{
			Rules:       rules,
			Strategy:    match.NewStrategy(opts.PartialVersions),
			SearchLimit: opts.SearchLimit,
		}),
		progress: progress,
		stats:    &LookupStats{},
	}

	progress.Println("")
	progress.Println(fmt.Sprintf("Will write to output kbfile %s", opts.OutputLookup))
	progress.Println(fmt.Sprintf("Processing component list file %s ...", opts.ManifestFile))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return run.finish(), err
		}
		if err := run.process(ctx, entry); err != nil {
			return run.finish(), err
		}
		if opts.MaxNew > 0 && run.stats.Processed > opts.MaxNew {
			limitErr := &LimitError{Processed: run.stats.Processed, Limit: opts.MaxNew}
			progress.Println(limitErr.Error())
			output.Info("component limit reached - terminating early", "processed", run.stats.Processed)
			stats := run.finish()
			stats.Truncated = true
			return stats, limitErr
		}
	}

	return run.finish(), nil
}

func (l *lookupRun) finish() *LookupStats {
	l.stats.Searches = l.resolver.Searches()
	return l.stats
}

func (l *lookupRun) process(ctx context.Context, entry manifest.Entry) error {
	l.stats.Entries++
	l.progress.Component("Manifest Component =", entry.Key())
	logger := output.ComponentLogger(entry.Key())
	logger.Info("processing component")

	if entry.Skip {
		l.progress.Status(output.StatusSkipped, "")
		logger.Info("component skipped", "prefix", entry.SkipPrefix)
		l.stats.Skipped++
		return nil
	}

	compURLs, known := l.cache.Components(entry.Name)
	if !known {
		logger.Info("component not in lookup file")
		return l.resolveNew(ctx, entry)
	}

	if l.cache.IsNoMatch(entry.Name) {
		l.progress.Status(output.StatusNoMatch, "in input KB file")
		logger.Info("component found in lookup file with no KB match")
		l.stats.NoLookupMatch++
		return nil
	}

	if _, ok := l.cache.VersionURL(entry.Name, entry.Version); ok {
		l.progress.Status(output.StatusAlreadyMatched, "in input KB file")
		logger.Info("component version already processed")
		l.stats.AlreadyMatched++
		return nil
	}

	logger.Info("version not in lookup file - searching KB")
	return l.resolveVersion(ctx, entry, compURLs)
}

// resolveNew searches the KB for a component missing from the lookup file
// and appends a match or no-match record.
func (l *lookupRun) resolveNew(ctx context.Context, entry manifest.Entry) error {
	l.stats.Processed++
	res := l.resolver.Resolve(ctx, entry.Name, entry.Version)
	if err := ctx.Err(); err != nil {
		return err
	}

	var rec lookup.Record
	if res.Found() {
		rec = lookup.NewMatchRecord(entry.Name, res.ComponentName, res.SourceURL, res.ComponentURL, entry.Version, res.VersionURL)
		l.progress.Status(output.StatusMatched, fmt.Sprintf("'%s/%s'", res.ComponentName, res.Version))
		l.stats.NewMatch++
	} else {
		rec = lookup.NewNoMatchRecord(entry.Name, entry.Version)
		l.progress.Status(output.StatusNoMatch, "")
		l.stats.NotInKB++
	}

	l.cache.Add(rec)
	return lookup.Append(l.opts.OutputLookup, rec)
}

// resolveVersion handles a cached component with a version the lookup file
// has not seen yet.
func (l *lookupRun) resolveVersion(ctx context.Context, entry manifest.Entry, compURLs []string) error {
	primary := compURLs[0]

	for _, compURL := range compURLs {
		if compURL == lookup.NoMatch {
			continue
		}
		res, err := l.resolver.MatchComponent(ctx, compURL, entry.Version)
		if err != nil {
			output.Error("failed to retrieve component", "url", compURL, "err", err)
			continue
		}
		if !res.Found() {
			continue
		}
		l.cache.SetVersion(entry.Name, entry.Version, res.VersionURL)
		if err := l.recordVersion(entry, primary, res); err != nil {
			return err
		}
		l.progress.Status(output.StatusMatched, fmt.Sprintf("'%s'", entry.Key()))
		l.stats.NewVersion++
		return nil
	}

	l.stats.Processed++
	res := l.resolver.Resolve(ctx, entry.Name, entry.Version)
	if err := ctx.Err(); err != nil {
		return err
	}

	if res.Found() {
		rec := lookup.NewMatchRecord(entry.Name, res.ComponentName, res.SourceURL, res.ComponentURL, entry.Version, res.VersionURL)
		l.cache.Add(rec)
		l.progress.Status(output.StatusMatched, fmt.Sprintf("'%s/%s'", res.ComponentName, res.Version))
		l.stats.NewMatch++
		return lookup.Append(l.opts.OutputLookup, rec)
	}

	output.Info("no version match in KB - updating lookup entry", "component", entry.Name, "version", entry.Version)
	l.cache.SetVersion(entry.Name, entry.Version, lookup.NoVersionMatch)
	if err := l.recordVersion(entry, primary, resolver.Result{VersionURL: lookup.NoVersionMatch}); err != nil {
		return err
	}
	l.progress.Status(output.StatusNoVersionMatch, "")
	l.stats.NoVersion++
	return nil
}

// recordVersion adds the version pair to the existing record of the
// component in the output file. When the record only exists in the input
// lookup file a new record is appended instead, carrying the KB name and
// source URL of the cached record.
func (l *lookupRun) recordVersion(entry manifest.Entry, primary string, res resolver.Result) error {
	updated, err := lookup.UpdateEntry(l.opts.OutputLookup, entry.Name, primary, entry.Version, res.VersionURL)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	kbName, sourceURL := res.ComponentName, res.SourceURL
	if cached, ok := l.cache.Record(entry.Name); ok {
		kbName, sourceURL = cached.KBName, cached.SourceURL
	}
	rec := lookup.NewMatchRecord(entry.Name, kbName, sourceURL, primary, entry.Version, res.VersionURL)
	return lookup.Append(l.opts.OutputLookup, rec)
}
