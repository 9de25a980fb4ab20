// Package kb defines the knowledge base client used to look up open-source
// components and to maintain project version BOMs on the server.
package kb

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by Client implementations.
var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("kb: not found")

	// ErrAlreadyExists is returned when adding a component already in the BOM.
	ErrAlreadyExists = errors.New("kb: already exists")
)

// StatusError reports an unexpected HTTP status from the server.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kb: %s %s returned status %d", e.Method, e.URL, e.Code)
}

// Candidate is a single hit from a component name search.
type Candidate struct {
	// ComponentURL is the KB component reference.
	ComponentURL string
}

// Component is a KB component record.
type Component struct {
	Name        string
	URL         string // component reference (self link)
	SourceURL   string // upstream project URL
	VersionsURL string
}

// Version is one KB version of a component.
type Version struct {
	Name string
	URL  string
}

// Project is a server-side project.
type Project struct {
	Name string
	URL  string
}

// ProjectVersion is a version of a Project; BOMs hang off it.
type ProjectVersion struct {
	Name string
	URL  string
}

// MatchTypeManual marks BOM components that were added by hand or by this tool.
const MatchTypeManual = "MANUAL_BOM_COMPONENT"

// BOMComponent is one entry in a project version BOM.
type BOMComponent struct {
	ComponentName        string
	ComponentVersionName string
	ComponentVersionURL  string
	MatchTypes           []string
	URL                  string // BOM entry self link, used for deletion
}

// IsManual reports whether the first match type is MANUAL_BOM_COMPONENT.
func (c BOMComponent) IsManual() bool {
	return len(c.MatchTypes) > 0 && c.MatchTypes[0] == MatchTypeManual
}

// BOMAddition describes a component version to add to a BOM.
type BOMAddition struct {
	// ComponentVersionURL is the KB version reference to add.
	ComponentVersionURL string

	// Purpose records the provenance, e.g. the manifest file name.
	Purpose string

	// Modification records the original manifest "<name>/<version>".
	Modification string
}

// Client is the set of KB and BOM operations the tool relies on. All calls are
// blocking round trips.
type Client interface {
	// SearchByName returns up to limit component hits for name.
	SearchByName(ctx context.Context, name string, limit int) ([]Candidate, error)

	// GetComponent fetches the component at componentURL.
	GetComponent(ctx context.Context, componentURL string) (*Component, error)

	// GetVersions lists all versions at versionsURL, in server order.
	GetVersions(ctx context.Context, versionsURL string) ([]Version, error)

	// AddToBOM adds a component version to the project version BOM.
	// Returns ErrAlreadyExists when the component is already present.
	AddToBOM(ctx context.Context, projectVersionURL string, add BOMAddition) error

	// DeleteFromBOM removes a BOM entry by its self link.
	DeleteFromBOM(ctx context.Context, bomComponentURL string) error

	// GetProject finds a project by name. Returns ErrNotFound when absent.
	GetProject(ctx context.Context, name string) (*Project, error)

	// CreateProject creates a project together with its first version.
	CreateProject(ctx context.Context, name, versionName string) (*Project, error)

	// GetProjectVersion finds a version of project. Returns ErrNotFound when absent.
	GetProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error)

	// CreateProjectVersion creates a version of project.
	CreateProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error)

	// ListVersionComponents returns the BOM of a project version.
	ListVersionComponents(ctx context.Context, pv *ProjectVersion) ([]BOMComponent, error)
}
