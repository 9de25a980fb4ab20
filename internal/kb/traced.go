package kb

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/yoctobom/cli/internal/kb"

// Traced wraps a Client and records one span per call. When no tracer
// provider has been installed the global no-op provider is used.
type Traced struct {
	next   Client
	tracer trace.Tracer
}

var _ Client = (*Traced)(nil)

// NewTraced decorates next with tracing. A nil tp uses the global provider.
func NewTraced(next Client, tp trace.TracerProvider) *Traced {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Traced{next: next, tracer: tp.Tracer(tracerName)}
}

func (t *Traced) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "kb."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SearchByName implements Client.
func (t *Traced) SearchByName(ctx context.Context, name string, limit int) ([]Candidate, error) {
	ctx, span := t.start(ctx, "SearchByName", attribute.String("kb.search.name", name), attribute.Int("kb.search.limit", limit))
	hits, err := t.next.SearchByName(ctx, name, limit)
	span.SetAttributes(attribute.Int("kb.search.hits", len(hits)))
	finish(span, err)
	return hits, err
}

// GetComponent implements Client.
func (t *Traced) GetComponent(ctx context.Context, componentURL string) (*Component, error) {
	ctx, span := t.start(ctx, "GetComponent", attribute.String("kb.component.url", componentURL))
	comp, err := t.next.GetComponent(ctx, componentURL)
	finish(span, err)
	return comp, err
}

// GetVersions implements Client.
func (t *Traced) GetVersions(ctx context.Context, versionsURL string) ([]Version, error) {
	ctx, span := t.start(ctx, "GetVersions", attribute.String("kb.versions.url", versionsURL))
	versions, err := t.next.GetVersions(ctx, versionsURL)
	span.SetAttributes(attribute.Int("kb.versions.count", len(versions)))
	finish(span, err)
	return versions, err
}

// AddToBOM implements Client.
func (t *Traced) AddToBOM(ctx context.Context, projectVersionURL string, add BOMAddition) error {
	ctx, span := t.start(ctx, "AddToBOM",
		attribute.String("kb.project_version.url", projectVersionURL),
		attribute.String("kb.component_version.url", add.ComponentVersionURL))
	err := t.next.AddToBOM(ctx, projectVersionURL, add)
	finish(span, err)
	return err
}

// DeleteFromBOM implements Client.
func (t *Traced) DeleteFromBOM(ctx context.Context, bomComponentURL string) error {
	ctx, span := t.start(ctx, "DeleteFromBOM", attribute.String("kb.bom_component.url", bomComponentURL))
	err := t.next.DeleteFromBOM(ctx, bomComponentURL)
	finish(span, err)
	return err
}

// GetProject implements Client.
func (t *Traced) GetProject(ctx context.Context, name string) (*Project, error) {
	ctx, span := t.start(ctx, "GetProject", attribute.String("kb.project.name", name))
	p, err := t.next.GetProject(ctx, name)
	finish(span, err)
	return p, err
}

// CreateProject implements Client.
func (t *Traced) CreateProject(ctx context.Context, name, versionName string) (*Project, error) {
	ctx, span := t.start(ctx, "CreateProject",
		attribute.String("kb.project.name", name),
		attribute.String("kb.project_version.name", versionName))
	p, err := t.next.CreateProject(ctx, name, versionName)
	finish(span, err)
	return p, err
}

// GetProjectVersion implements Client.
func (t *Traced) GetProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error) {
	ctx, span := t.start(ctx, "GetProjectVersion",
		attribute.String("kb.project.name", project.Name),
		attribute.String("kb.project_version.name", versionName))
	pv, err := t.next.GetProjectVersion(ctx, project, versionName)
	finish(span, err)
	return pv, err
}

// CreateProjectVersion implements Client.
func (t *Traced) CreateProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error) {
	ctx, span := t.start(ctx, "CreateProjectVersion",
		attribute.String("kb.project.name", project.Name),
		attribute.String("kb.project_version.name", versionName))
	pv, err := t.next.CreateProjectVersion(ctx, project, versionName)
	finish(span, err)
	return pv, err
}

// ListVersionComponents implements Client.
func (t *Traced) ListVersionComponents(ctx context.Context, pv *ProjectVersion) ([]BOMComponent, error) {
	ctx, span := t.start(ctx, "ListVersionComponents", attribute.String("kb.project_version.url", pv.URL))
	comps, err := t.next.ListVersionComponents(ctx, pv)
	span.SetAttributes(attribute.Int("kb.bom.count", len(comps)))
	finish(span, err)
	return comps, err
}
