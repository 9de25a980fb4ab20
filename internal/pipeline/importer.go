package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/yoctobom/cli/internal/kb"
	"github.com/yoctobom/cli/internal/lookup"
	"github.com/yoctobom/cli/internal/manifest"
	"github.com/yoctobom/cli/internal/match"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/resolver"
)

// PurposePrefix starts the componentPurpose of every BOM addition.
const PurposePrefix = "import_manifest: imported from file "

// RunImport adds the KB version of every manifest entry found in the lookup
// file to the BOM of the project version, creating the project and version
// when needed. Skip rules do not apply in this mode.
//
// With DeleteManual, manual BOM components whose version was not imported by
// this run are deleted afterwards.
func RunImport(ctx context.Context, client kb.Client, progress *output.Progress, opts ImportOptions) (*ImportStats, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cache := lookup.NewCache()
	progress.Println(fmt.Sprintf("Reading input KB lookup file %s ...", opts.LookupFile))
	res, err := cache.Import(opts.LookupFile, "")
	if err != nil {
		return nil, err
	}
	progress.Println(fmt.Sprintf("Processed %d entries from %s", res.Records, opts.LookupFile))

	pv, err := openProjectVersion(ctx, client, progress, opts.Project, opts.Version)
	if err != nil {
		return nil, err
	}

	progress.Println(fmt.Sprintf("Using component list file '%s'", opts.ManifestFile))
	entries, err := manifest.ReadFile(opts.ManifestFile, nil)
	if err != nil {
		return nil, err
	}

	var bom []kb.BOMComponent
	err = output.RunWithSpinner(ctx, func() error {
		var listErr error
		bom, listErr = client.ListVersionComponents(ctx, pv)
		return listErr
	}, output.WithTitle("Listing project version components..."))
	if err != nil {
		return nil, fmt.Errorf("listing components of %s/%s: %w", opts.Project, opts.Version, err)
	}

	stats := &ImportStats{Existing: len(bom)}
	progress.Println(fmt.Sprintf("Found %d existing components in project", len(bom)))

	var manual []kb.BOMComponent
	if opts.DeleteManual {
		for _, c := range bom {
			if c.IsManual() {
				manual = append(manual, c)
			}
		}
		stats.Manual = len(manual)
		progress.Println(fmt.Sprintf("Found %d manual components", len(manual)))
	}

	r := resolver.New(client, cache, resolver.Options{
		Strategy: match.NewStrategy(opts.PartialVersions),
	})
	imported := make(map[string]struct{})

	progress.Println("")
	progress.Println("Processing component list ...")
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		progress.Component("Manifest component to add =", entry.Key())
		verURL, known := versionURL(ctx, cache, r, entry)
		if !known {
			progress.Status(output.StatusSkipped, "Does not exist in KBlookup file")
			stats.Skipped++
			continue
		}
		if verURL == "" {
			progress.Status(output.StatusNoMatch, "No component match from KB (NOT ADDED)")
			stats.NotInKB++
			continue
		}

		err := client.AddToBOM(ctx, pv.URL, kb.BOMAddition{
			ComponentVersionURL: verURL,
			Purpose:             PurposePrefix + opts.ManifestFile,
			Modification:        "Original component = " + entry.Key(),
		})
		switch {
		case err == nil:
			progress.Status(output.StatusAdded, "")
			stats.Added++
		case errors.Is(err, kb.ErrAlreadyExists):
			progress.Status(output.StatusExists, "")
			stats.AlreadyExists++
		default:
			progress.Status(output.StatusFailed, "")
			output.Error("failed to add component to BOM", "component", entry.Key(), "url", verURL, "err", err)
			stats.Failed++
		}
		imported[verURL] = struct{}{}
	}

	if opts.DeleteManual {
		deleteManual(ctx, client, progress, manual, imported, stats)
	}

	return stats, nil
}

// openProjectVersion finds or creates the project and version.
func openProjectVersion(ctx context.Context, client kb.Client, progress *output.Progress, project, version string) (*kb.ProjectVersion, error) {
	var (
		pv       *kb.ProjectVersion
		messages []string
	)

	err := output.RunWithSpinner(ctx, func() error {
		p, err := client.GetProject(ctx, project)
		switch {
		case errors.Is(err, kb.ErrNotFound):
			p, err = client.CreateProject(ctx, project, version)
			if err != nil {
				return fmt.Errorf("creating project %q: %w", project, err)
			}
			messages = append(messages, fmt.Sprintf("Created project '%s'", project))
		case err != nil:
			return fmt.Errorf("looking up project %q: %w", project, err)
		default:
			messages = append(messages, fmt.Sprintf("Opening project '%s'", project))
		}

		pv, err = client.GetProjectVersion(ctx, p, version)
		switch {
		case errors.Is(err, kb.ErrNotFound):
			pv, err = client.CreateProjectVersion(ctx, p, version)
			if err != nil {
				return fmt.Errorf("cannot create version %q: %w", version, err)
			}
			messages = append(messages, fmt.Sprintf("Created version '%s'", version))
		case err != nil:
			return fmt.Errorf("looking up version %q: %w", version, err)
		default:
			messages = append(messages, fmt.Sprintf("Opening version '%s'", version))
		}
		return nil
	}, output.WithTitle(fmt.Sprintf("Opening project %s version %s...", project, version)))

	for _, m := range messages {
		progress.Println(m)
	}
	if err != nil {
		return nil, err
	}
	output.Debug("using project version", "project", project, "version", version, "url", pv.URL)
	return pv, nil
}

// versionURL returns the KB version URL for entry. known is false when the
// lookup file has no record for the component; an empty URL with known set
// means the KB has no matching version.
func versionURL(ctx context.Context, cache *lookup.Cache, r *resolver.Resolver, entry manifest.Entry) (url string, known bool) {
	compURLs, ok := cache.Components(entry.Name)
	if !ok {
		return "", false
	}

	if u, ok := cache.VersionURL(entry.Name, entry.Version); ok {
		if u == lookup.NoVersionMatch {
			return "", true
		}
		return u, true
	}

	for _, compURL := range compURLs {
		if compURL == lookup.NoMatch {
			continue
		}
		res, err := r.MatchComponent(ctx, compURL, entry.Version)
		if err != nil {
			output.Error("failed to retrieve component", "url", compURL, "err", err)
			continue
		}
		if res.Found() {
			return res.VersionURL, true
		}
	}
	return "", true
}

func deleteManual(ctx context.Context, client kb.Client, progress *output.Progress, manual []kb.BOMComponent, imported map[string]struct{}, stats *ImportStats) {
	progress.Println("")
	progress.Printf("Deleting outdated components ...")
	for _, c := range manual {
		if _, ok := imported[c.ComponentVersionURL]; ok {
			continue
		}
		if err := client.DeleteFromBOM(ctx, c.URL); err != nil {
			output.Error("failed to delete component from BOM", "component", c.ComponentName, "url", c.URL, "err", err)
			continue
		}
		output.Info("deleted manual component", "component", c.ComponentName, "version", c.ComponentVersionName)
		progress.Printf(".")
		stats.Deleted++
	}
	progress.Println("")
	progress.Println(fmt.Sprintf("Deleted %d existing manual components", stats.Deleted))
}
