// Package kbtest provides an in-memory kb.Client for tests.
package kbtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yoctobom/cli/internal/kb"
)

// BaseURL prefixes every URL handed out by Fake.
const BaseURL = "https://kb.test"

type component struct {
	kb.Component
	versions []kb.Version
}

// Fake is a deterministic in-memory KB. Register data with AddComponent and
// Index, then inspect the recorded calls.
type Fake struct {
	mu sync.Mutex

	components map[string]*component
	byVersions map[string]*component
	searches   map[string][]string
	nextID     int

	projects map[string]*kb.Project
	versions map[string]map[string]*kb.ProjectVersion
	boms     map[string][]kb.BOMComponent

	// SearchErr, when set for a name, is returned by SearchByName.
	SearchErr map[string]error
	// AddErr, when set for a component version URL, is returned by AddToBOM.
	AddErr map[string]error

	// Searches records every SearchByName name in call order.
	Searches []string
	// ComponentFetches records every GetComponent URL in call order.
	ComponentFetches []string
	// Added records every successful AddToBOM call.
	Added []kb.BOMAddition
	// Deleted records every DeleteFromBOM URL.
	Deleted []string
	// Created records "project:<name>" and "version:<name>" creations.
	Created []string
}

var _ kb.Client = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		components: make(map[string]*component),
		byVersions: make(map[string]*component),
		searches:   make(map[string][]string),
		projects:   make(map[string]*kb.Project),
		versions:   make(map[string]map[string]*kb.ProjectVersion),
		boms:       make(map[string][]kb.BOMComponent),
		SearchErr:  make(map[string]error),
		AddErr:     make(map[string]error),
	}
}

// AddComponent registers a component with the given versions, in order, and
// returns its URL. It is not searchable until indexed.
func (f *Fake) AddComponent(name, sourceURL string, versions ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	compURL := fmt.Sprintf("%s/api/components/c%d", BaseURL, f.nextID)
	c := &component{Component: kb.Component{
		Name:        name,
		URL:         compURL,
		SourceURL:   sourceURL,
		VersionsURL: compURL + "/versions",
	}}
	for i, v := range versions {
		c.versions = append(c.versions, kb.Version{
			Name: v,
			URL:  fmt.Sprintf("%s/versions/v%d", compURL, i+1),
		})
	}
	f.components[compURL] = c
	f.byVersions[c.VersionsURL] = c
	return compURL
}

// VersionURL returns the URL of version of the component at compURL.
func (f *Fake) VersionURL(compURL, version string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.components[compURL]; ok {
		for _, v := range c.versions {
			if v.Name == version {
				return v.URL
			}
		}
	}
	return ""
}

// Index makes name return the given component URLs from SearchByName.
func (f *Fake) Index(name string, componentURLs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[name] = append(f.searches[name], componentURLs...)
}

// SetBOM replaces the BOM of a project version.
func (f *Fake) SetBOM(pvURL string, comps []kb.BOMComponent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boms[pvURL] = comps
}

// SearchCount returns how many times name was searched.
func (f *Fake) SearchCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.Searches {
		if s == name {
			n++
		}
	}
	return n
}

// SearchByName implements kb.Client.
func (f *Fake) SearchByName(_ context.Context, name string, limit int) ([]kb.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Searches = append(f.Searches, name)
	if err := f.SearchErr[name]; err != nil {
		return nil, err
	}
	var hits []kb.Candidate
	for _, u := range f.searches[name] {
		if limit > 0 && len(hits) == limit {
			break
		}
		hits = append(hits, kb.Candidate{ComponentURL: u})
	}
	return hits, nil
}

// GetComponent implements kb.Client.
func (f *Fake) GetComponent(_ context.Context, componentURL string) (*kb.Component, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ComponentFetches = append(f.ComponentFetches, componentURL)
	c, ok := f.components[componentURL]
	if !ok {
		return nil, fmt.Errorf("component %s: %w", componentURL, kb.ErrNotFound)
	}
	comp := c.Component
	return &comp, nil
}

// GetVersions implements kb.Client.
func (f *Fake) GetVersions(_ context.Context, versionsURL string) ([]kb.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.byVersions[versionsURL]
	if !ok {
		return nil, fmt.Errorf("versions %s: %w", versionsURL, kb.ErrNotFound)
	}
	return append([]kb.Version(nil), c.versions...), nil
}

// AddToBOM implements kb.Client.
func (f *Fake) AddToBOM(_ context.Context, projectVersionURL string, add kb.BOMAddition) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.AddErr[add.ComponentVersionURL]; err != nil {
		return err
	}
	for _, existing := range f.boms[projectVersionURL] {
		if existing.ComponentVersionURL == add.ComponentVersionURL {
			return fmt.Errorf("%w: %s", kb.ErrAlreadyExists, add.ComponentVersionURL)
		}
	}
	f.Added = append(f.Added, add)
	f.boms[projectVersionURL] = append(f.boms[projectVersionURL], kb.BOMComponent{
		ComponentVersionURL: add.ComponentVersionURL,
		MatchTypes:          []string{kb.MatchTypeManual},
		URL:                 fmt.Sprintf("%s/components/b%d", projectVersionURL, len(f.boms[projectVersionURL])+1),
	})
	return nil
}

// DeleteFromBOM implements kb.Client.
func (f *Fake) DeleteFromBOM(_ context.Context, bomComponentURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Deleted = append(f.Deleted, bomComponentURL)
	for pv, comps := range f.boms {
		for i, c := range comps {
			if c.URL == bomComponentURL {
				f.boms[pv] = append(comps[:i:i], comps[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("bom component %s: %w", bomComponentURL, kb.ErrNotFound)
}

// GetProject implements kb.Client.
func (f *Fake) GetProject(_ context.Context, name string) (*kb.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.projects[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("project %q: %w", name, kb.ErrNotFound)
}

// CreateProject implements kb.Client.
func (f *Fake) CreateProject(_ context.Context, name, versionName string) (*kb.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &kb.Project{Name: name, URL: fmt.Sprintf("%s/api/projects/p%d", BaseURL, len(f.projects)+1)}
	f.projects[name] = p
	f.Created = append(f.Created, "project:"+name)
	f.addVersionLocked(p, versionName)
	return p, nil
}

// GetProjectVersion implements kb.Client.
func (f *Fake) GetProjectVersion(_ context.Context, project *kb.Project, versionName string) (*kb.ProjectVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pv, ok := f.versions[project.URL][versionName]; ok {
		return pv, nil
	}
	return nil, fmt.Errorf("version %q: %w", versionName, kb.ErrNotFound)
}

// CreateProjectVersion implements kb.Client.
func (f *Fake) CreateProjectVersion(_ context.Context, project *kb.Project, versionName string) (*kb.ProjectVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Created = append(f.Created, "version:"+versionName)
	return f.addVersionLocked(project, versionName), nil
}

func (f *Fake) addVersionLocked(project *kb.Project, versionName string) *kb.ProjectVersion {
	if f.versions[project.URL] == nil {
		f.versions[project.URL] = make(map[string]*kb.ProjectVersion)
	}
	pv := &kb.ProjectVersion{
		Name: versionName,
		URL:  fmt.Sprintf("%s/versions/pv%d", project.URL, len(f.versions[project.URL])+1),
	}
	f.versions[project.URL][versionName] = pv
	return pv
}

// ListVersionComponents implements kb.Client.
func (f *Fake) ListVersionComponents(_ context.Context, pv *kb.ProjectVersion) ([]kb.BOMComponent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kb.BOMComponent(nil), f.boms[pv.URL]...), nil
}
