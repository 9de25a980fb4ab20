// Package pipeline runs the two yoctobom modes: kblookup, which resolves a
// build manifest against the KB into a lookup file, and import, which adds
// the resolved components to a project version BOM.
package pipeline

import (
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
)

// LookupOptions configures a kblookup run.
type LookupOptions struct {
	// ManifestFile is the build manifest to resolve (required).
	ManifestFile string

	// RulesFile is the replacement/skip rules file (required).
	RulesFile string

	// InputLookup is an existing lookup file to start from (optional).
	InputLookup string

	// OutputLookup receives new and updated records (required).
	OutputLookup string

	// Append copies InputLookup into OutputLookup before processing.
	Append bool

	// MaxNew stops the run after this many newly searched components.
	// Zero or less disables the limit.
	MaxNew int

	// SearchLimit caps the hits per KB name search.
	SearchLimit int

	// PartialVersions enables fuzzy version matching after exact matching.
	PartialVersions bool
}

// Validate checks the options.
func (o LookupOptions) Validate() error {
	if o.ManifestFile == "" {
		return oerrors.NewValidationError("build manifest file is required", "", "Pass it with -c")
	}
	if o.RulesFile == "" {
		return oerrors.NewValidationError("replacement file is required", "", "Pass it with -r")
	}
	if o.OutputLookup == "" {
		return oerrors.NewValidationError("output lookup file is required", "", "Pass it with -o")
	}
	if o.Append && o.InputLookup == "" {
		return oerrors.NewValidationError("append requires an input lookup file", "", "Pass the lookup file to copy with -k")
	}
	return nil
}

// withDefaults fills unset limits from the config defaults.
func (o LookupOptions) withDefaults() LookupOptions {
	if o.SearchLimit <= 0 {
		o.SearchLimit = config.DefaultSearchLimit
	}
	return o
}

// LookupStats counts kblookup outcomes.
type LookupStats struct {
	Entries        int  `json:"entries" yaml:"entries"`
	Skipped        int  `json:"skipped" yaml:"skipped"`
	NotInKB        int  `json:"notInKB" yaml:"notInKB"`
	AlreadyMatched int  `json:"alreadyMatched" yaml:"alreadyMatched"`
	NoLookupMatch  int  `json:"noLookupMatch" yaml:"noLookupMatch"`
	NewVersion     int  `json:"newVersionMatch" yaml:"newVersionMatch"`
	NoVersion      int  `json:"noVersionMatch" yaml:"noVersionMatch"`
	NewMatch       int  `json:"newMatch" yaml:"newMatch"`
	Processed      int  `json:"processed" yaml:"processed"`
	Searches       int  `json:"searches" yaml:"searches"`
	Truncated      bool `json:"truncated" yaml:"truncated"`
}

// Counters returns the summary rows in display order.
func (s *LookupStats) Counters() []output.Counter {
	return []output.Counter{
		{Label: "Entries processed from component file", Value: s.Entries},
		{Label: "Components Skipped", Value: s.Skipped},
		{Label: "Components Not in KB", Value: s.NotInKB},
		{Label: "Components Already Matched in KBLookup file (duplicate)", Value: s.AlreadyMatched},
		{Label: "Components Not Matched from KBLookup file", Value: s.NoLookupMatch},
		{Label: "Components with New Version Match", Value: s.NewVersion},
		{Label: "Components with No Version Match", Value: s.NoVersion},
		{Label: "Components with New Match", Value: s.NewMatch},
	}
}

// ImportOptions configures an import run.
type ImportOptions struct {
	// ManifestFile is the build manifest to import (required).
	ManifestFile string

	// LookupFile is the lookup file produced by kblookup (required).
	LookupFile string

	// Project and Version name the target project version (required).
	// Both are created when absent.
	Project string
	Version string

	// DeleteManual removes manual BOM components not present in the manifest.
	DeleteManual bool

	// PartialVersions enables fuzzy version matching for uncached versions.
	PartialVersions bool
}

// Validate checks the options.
func (o ImportOptions) Validate() error {
	if o.ManifestFile == "" {
		return oerrors.NewValidationError("build manifest file is required", "", "Pass it with -c")
	}
	if o.LookupFile == "" {
		return oerrors.NewValidationError("lookup file is required", "", "Pass the kblookup output with -k")
	}
	if o.Project == "" || o.Version == "" {
		return oerrors.NewValidationError("project and version are required", "", "Pass them with -p and -v")
	}
	return nil
}

// ImportStats counts import outcomes.
type ImportStats struct {
	Existing      int `json:"existing" yaml:"existing"`
	Manual        int `json:"manual" yaml:"manual"`
	Added         int `json:"added" yaml:"added"`
	Skipped       int `json:"skipped" yaml:"skipped"`
	NotInKB       int `json:"notInKB" yaml:"notInKB"`
	AlreadyExists int `json:"alreadyExists" yaml:"alreadyExists"`
	Failed        int `json:"failed" yaml:"failed"`
	Deleted       int `json:"deleted" yaml:"deleted"`
}

// Counters returns the summary rows in display order. The deleted row is
// only included when manual components were pruned.
func (s *ImportStats) Counters(deleteManual bool) []output.Counter {
	counters := []output.Counter{
		{Label: "Components Added", Value: s.Added},
		{Label: "Components Skipped", Value: s.Skipped},
		{Label: "Components Not in KB", Value: s.NotInKB},
		{Label: "Components Already Exist", Value: s.AlreadyExists},
		{Label: "Components Failed", Value: s.Failed},
	}
	if deleteManual {
		counters = append(counters, output.Counter{Label: "Manual Components Deleted", Value: s.Deleted})
	}
	return counters
}
