// Package cmdutil provides shared command utilities for the kblookup and
// import commands. It centralizes flag group management, KB client creation
// and run summary output.
package cmdutil

import (
	"github.com/spf13/cobra"
)

// ManifestFlags holds flags common to commands that read a build manifest
// and a KB lookup file (kblookup, import).
type ManifestFlags struct {
	ManifestFile string
	LookupFile   string
}

// AddTo registers the manifest flags on the given cobra command. The
// manifest flag is always required; lookupUsage describes -k for the
// command at hand.
func (f *ManifestFlags) AddTo(cmd *cobra.Command, lookupUsage string) {
	cmd.Flags().StringVarP(&f.ManifestFile, "component_file", "c", "",
		"Input build manifest file")
	cmd.Flags().StringVarP(&f.LookupFile, "kbfile", "k", "", lookupUsage)
	_ = cmd.MarkFlagRequired("component_file")
}

// LookupFlags holds the kblookup-specific flags.
type LookupFlags struct {
	RulesFile  string
	OutputFile string
	ListFile   string
	Append     bool
}

// AddTo registers the kblookup flags on the given cobra command.
func (f *LookupFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.RulesFile, "replace_file", "r", "",
		"File of component name replacement strings and SKIP component strings")
	cmd.Flags().StringVarP(&f.OutputFile, "output", "o", "",
		`Output KB lookup file (default: kblookup.output from config, "kblookup.out")`)
	cmd.Flags().BoolVarP(&f.Append, "append", "a", false,
		"Append new KB URLs to the KB lookup file specified in -k")
	cmd.Flags().StringVarP(&f.ListFile, "listfile", "l", "",
		"Create an output file of component matches")
	_ = cmd.MarkFlagRequired("replace_file")
}

// ProjectFlags holds the flags selecting a project version on the KB server.
type ProjectFlags struct {
	Project      string
	Version      string
	DeleteManual bool
}

// AddTo registers the project flags on the given cobra command.
func (f *ProjectFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Project, "project", "p", "", "Project name")
	cmd.Flags().StringVarP(&f.Version, "version", "v", "", "Project version name")
	cmd.Flags().BoolVarP(&f.DeleteManual, "delete", "d", false,
		"Delete existing manual components that were not imported by this run")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("version")
}
