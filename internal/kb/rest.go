package kb

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/version"
)

const (
	// DefaultTimeout applies when RESTOptions.Timeout is zero.
	DefaultTimeout = 60 * time.Second

	// versionsPageLimit is large enough to return every version of a component.
	versionsPageLimit = 3000

	// bomPageLimit bounds a single BOM listing.
	bomPageLimit = 5000

	mediaTypeJSON = "application/json"
	mediaTypeBOM  = "application/vnd.blackducksoftware.bill-of-materials-6+json"

	defaultPhase        = "DEVELOPMENT"
	defaultDistribution = "EXTERNAL"
)

// RESTOptions configures a RESTClient.
type RESTOptions struct {
	// BaseURL is the server root, e.g. https://kb.example.com.
	BaseURL string

	// Token is a pre-issued bearer token sent on every request.
	Token string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client built from the options above.
	HTTPClient *http.Client
}

// RESTClient talks to the KB server over its REST API.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a REST client. BaseURL is required.
func NewRESTClient(opts RESTOptions) (*RESTClient, error) {
	if opts.BaseURL == "" {
		return nil, oerrors.NewValidationError("no KB server URL configured", "",
			"Set --server, YOCTOBOM_SERVER_URL or server.url in the config file")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, oerrors.NewValidationError(fmt.Sprintf("invalid KB server URL %q: %v", opts.BaseURL, err), "", "")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via server.insecure
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	return &RESTClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		token:      opts.Token,
		httpClient: httpClient,
	}, nil
}

type meta struct {
	Href  string `json:"href"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (m meta) link(rel string) string {
	for _, l := range m.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	if len(m.Links) > 0 {
		return m.Links[0].Href
	}
	return ""
}

type searchResponse struct {
	Items []struct {
		SearchResultStatistics struct {
			NumResultsInThisPage int `json:"numResultsInThisPage"`
		} `json:"searchResultStatistics"`
		Hits []struct {
			Component string `json:"component"`
		} `json:"hits"`
	} `json:"items"`
}

type componentResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Meta meta   `json:"_meta"`
}

type versionsResponse struct {
	Items []struct {
		VersionName string `json:"versionName"`
		Meta        meta   `json:"_meta"`
	} `json:"items"`
}

type projectsResponse struct {
	Items []struct {
		Name string `json:"name"`
		Meta meta   `json:"_meta"`
	} `json:"items"`
}

type bomResponse struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		ComponentName        string   `json:"componentName"`
		ComponentVersionName string   `json:"componentVersionName"`
		ComponentVersion     string   `json:"componentVersion"`
		MatchTypes           []string `json:"matchTypes"`
		Meta                 meta     `json:"_meta"`
	} `json:"items"`
}

type versionRequest struct {
	VersionName  string `json:"versionName"`
	Phase        string `json:"phase"`
	Distribution string `json:"distribution"`
}

type projectRequest struct {
	Name           string         `json:"name"`
	VersionRequest versionRequest `json:"versionRequest"`
}

type bomRequest struct {
	Component             string `json:"component"`
	ComponentPurpose      string `json:"componentPurpose"`
	ComponentModified     bool   `json:"componentModified"`
	ComponentModification string `json:"componentModification"`
}

// SearchByName implements Client. Spaces in name are sent as '+'.
func (c *RESTClient) SearchByName(ctx context.Context, name string, limit int) ([]Candidate, error) {
	reqURL := fmt.Sprintf("%s/api/search/components?q=name:%s&limit=%d", c.baseURL, url.QueryEscape(name), limit)

	var resp searchResponse
	if _, err := c.do(ctx, http.MethodGet, reqURL, "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].SearchResultStatistics.NumResultsInThisPage == 0 {
		return nil, nil
	}

	hits := make([]Candidate, 0, len(resp.Items[0].Hits))
	for _, h := range resp.Items[0].Hits {
		hits = append(hits, Candidate{ComponentURL: h.Component})
	}
	return hits, nil
}

// GetComponent implements Client.
func (c *RESTClient) GetComponent(ctx context.Context, componentURL string) (*Component, error) {
	var resp componentResponse
	if _, err := c.do(ctx, http.MethodGet, componentURL, "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	self := resp.Meta.Href
	if self == "" {
		self = componentURL
	}
	return &Component{
		Name:        resp.Name,
		URL:         self,
		SourceURL:   resp.URL,
		VersionsURL: resp.Meta.link("versions"),
	}, nil
}

// GetVersions implements Client.
func (c *RESTClient) GetVersions(ctx context.Context, versionsURL string) ([]Version, error) {
	if versionsURL == "" {
		return nil, fmt.Errorf("kb: component has no versions link: %w", ErrNotFound)
	}
	var resp versionsResponse
	if _, err := c.do(ctx, http.MethodGet, withLimit(versionsURL, versionsPageLimit), "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	versions := make([]Version, 0, len(resp.Items))
	for _, item := range resp.Items {
		versions = append(versions, Version{Name: item.VersionName, URL: item.Meta.Href})
	}
	return versions, nil
}

// AddToBOM implements Client.
func (c *RESTClient) AddToBOM(ctx context.Context, projectVersionURL string, add BOMAddition) error {
	body := bomRequest{
		Component:             add.ComponentVersionURL,
		ComponentPurpose:      add.Purpose,
		ComponentModified:     false,
		ComponentModification: add.Modification,
	}
	_, err := c.do(ctx, http.MethodPost, projectVersionURL+"/components", mediaTypeBOM, body, nil,
		http.StatusOK, http.StatusCreated)
	if err != nil {
		if isStatus(err, http.StatusConflict, http.StatusPreconditionFailed) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, add.ComponentVersionURL)
		}
		return err
	}
	return nil
}

// DeleteFromBOM implements Client.
func (c *RESTClient) DeleteFromBOM(ctx context.Context, bomComponentURL string) error {
	_, err := c.do(ctx, http.MethodDelete, bomComponentURL, "", nil, nil, http.StatusOK, http.StatusNoContent)
	return err
}

// GetProject implements Client.
func (c *RESTClient) GetProject(ctx context.Context, name string) (*Project, error) {
	reqURL := fmt.Sprintf("%s/api/projects?q=name:%s&limit=100", c.baseURL, url.QueryEscape(name))
	var resp projectsResponse
	if _, err := c.do(ctx, http.MethodGet, reqURL, "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	for _, item := range resp.Items {
		if item.Name == name {
			return &Project{Name: item.Name, URL: item.Meta.Href}, nil
		}
	}
	return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
}

// CreateProject implements Client.
func (c *RESTClient) CreateProject(ctx context.Context, name, versionName string) (*Project, error) {
	body := projectRequest{
		Name: name,
		VersionRequest: versionRequest{
			VersionName:  versionName,
			Phase:        defaultPhase,
			Distribution: defaultDistribution,
		},
	}
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/projects", mediaTypeJSON, body, nil, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		return &Project{Name: name, URL: loc}, nil
	}
	return c.GetProject(ctx, name)
}

// GetProjectVersion implements Client.
func (c *RESTClient) GetProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error) {
	reqURL := fmt.Sprintf("%s/versions?q=versionName:%s&limit=100", project.URL, url.QueryEscape(versionName))
	var resp versionsResponse
	if _, err := c.do(ctx, http.MethodGet, reqURL, "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	for _, item := range resp.Items {
		if item.VersionName == versionName {
			return &ProjectVersion{Name: item.VersionName, URL: item.Meta.Href}, nil
		}
	}
	return nil, fmt.Errorf("version %q of project %q: %w", versionName, project.Name, ErrNotFound)
}

// CreateProjectVersion implements Client.
func (c *RESTClient) CreateProjectVersion(ctx context.Context, project *Project, versionName string) (*ProjectVersion, error) {
	body := versionRequest{
		VersionName:  versionName,
		Phase:        defaultPhase,
		Distribution: defaultDistribution,
	}
	resp, err := c.do(ctx, http.MethodPost, project.URL+"/versions", mediaTypeJSON, body, nil, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		return &ProjectVersion{Name: versionName, URL: loc}, nil
	}
	return c.GetProjectVersion(ctx, project, versionName)
}

// ListVersionComponents implements Client.
func (c *RESTClient) ListVersionComponents(ctx context.Context, pv *ProjectVersion) ([]BOMComponent, error) {
	var resp bomResponse
	if _, err := c.do(ctx, http.MethodGet, withLimit(pv.URL+"/components", bomPageLimit), "", nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	comps := make([]BOMComponent, 0, len(resp.Items))
	for _, item := range resp.Items {
		comps = append(comps, BOMComponent{
			ComponentName:        item.ComponentName,
			ComponentVersionName: item.ComponentVersionName,
			ComponentVersionURL:  item.ComponentVersion,
			MatchTypes:           item.MatchTypes,
			URL:                  item.Meta.Href,
		})
	}
	return comps, nil
}

// do performs one request. body, when non-nil, is JSON encoded with
// contentType; out, when non-nil, receives the decoded JSON response.
func (c *RESTClient) do(ctx context.Context, method, reqURL, contentType string, body, out any, okCodes ...int) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", mediaTypeJSON)
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	output.Debug("kb request", "method", method, "url", reqURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, reqURL, oerrors.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if !containsCode(okCodes, resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Method: method, URL: reqURL, Code: resp.StatusCode}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return resp, fmt.Errorf("%w: %w", ErrNotFound, statusErr)
		case http.StatusUnauthorized, http.StatusForbidden:
			return resp, fmt.Errorf("%w: %w", oerrors.ErrPermission, statusErr)
		default:
			return resp, statusErr
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decoding %s response: %w", reqURL, err)
		}
	}
	return resp, nil
}

func containsCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func isStatus(err error, codes ...int) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return containsCode(codes, statusErr.Code)
}

func withLimit(rawURL string, limit int) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%slimit=%d", rawURL, sep, limit)
}
