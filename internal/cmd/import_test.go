package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/pipeline"
	"github.com/yoctobom/cli/internal/testutil"
)

// fakeBOMServer serves one existing project version with an empty BOM and
// records the component versions added to it.
type fakeBOMServer struct {
	*httptest.Server
	mu    sync.Mutex
	added []map[string]any
}

func newFakeBOMServer(t *testing.T) *fakeBOMServer {
	t.Helper()
	f := &fakeBOMServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := f.URL
		writeJSON := func(v any) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects":
			writeJSON(map[string]any{"items": []any{
				map[string]any{"name": "image", "_meta": map[string]any{"href": base + "/api/projects/1"}},
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/1/versions":
			writeJSON(map[string]any{"items": []any{
				map[string]any{"versionName": "1.0", "_meta": map[string]any{"href": base + "/api/projects/1/versions/2"}},
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/projects/1/versions/2/components":
			writeJSON(map[string]any{"totalCount": 0, "items": []any{}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/projects/1/versions/2/components":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.added = append(f.added, body)
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, fmt.Sprintf("unexpected %s %s", r.Method, r.URL.Path), http.StatusTeapot)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func TestImportCmd_RequiredFlags(t *testing.T) {
	cmd := NewImportCmd(nil)

	for _, name := range []string{"component_file", "kbfile", "project", "version"} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.NotEmpty(t, f.Annotations, name)
	}
	assert.Equal(t, "v", cmd.Flags().Lookup("version").Shorthand)
	assert.Equal(t, "d", cmd.Flags().Lookup("delete").Shorthand)
}

func TestImportCmd_MissingLookupFile(t *testing.T) {
	dir := setupCLIEnv(t)
	manifestFile := testutil.WriteLines(t, dir, "build.manifest", "openssl armv7 1.1.1d")

	_, err := executeCLI(t, "import", "-c", manifestFile, "-k", "absent.out",
		"-p", "image", "-v", "1.0", "--server", "https://kb.example.com")
	require.Error(t, err)

	var exitErr *oerrors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, oerrors.ExitNotFound, exitErr.Code)
}

func TestImportCmd_Execute(t *testing.T) {
	dir := setupCLIEnv(t)
	srv := newFakeBOMServer(t)
	manifestFile := testutil.WriteLines(t, dir, "build.manifest",
		"openssl armv7 1.1.1d",
		"mystery armv7 1.0",
		"unlisted armv7 2.0",
	)
	lookupFile := testutil.WriteLines(t, dir, "kblookup.out",
		"openssl;OpenSSL;https://www.openssl.org;https://kb/api/components/42;1.1.1d;https://kb/api/components/42/versions/2;",
		"mystery;;;NO MATCH;1.0;NO VERSION MATCH;",
	)

	out, err := executeCLI(t, "import", "-c", manifestFile, "-k", lookupFile,
		"-p", "image", "-v", "1.0", "--server", srv.URL)
	require.NoError(t, err)

	require.Len(t, srv.added, 1)
	assert.Equal(t, "https://kb/api/components/42/versions/2", srv.added[0]["component"])
	assert.Equal(t, pipeline.PurposePrefix+manifestFile, srv.added[0]["componentPurpose"])
	assert.Equal(t, "Original component = openssl/1.1.1d", srv.added[0]["componentModification"])

	assert.Contains(t, out, "Opening project 'image'")
	assert.Contains(t, out, "Opening version '1.0'")
	assert.Contains(t, out, "Does not exist in KBlookup file")
	assert.Contains(t, out, "No component match from KB (NOT ADDED)")
	assert.Contains(t, out, "IMPORT SUMMARY")
	assert.NotContains(t, out, "Manual Components Deleted")
}

func TestImportCmd_YAMLSummary(t *testing.T) {
	dir := setupCLIEnv(t)
	srv := newFakeBOMServer(t)
	manifestFile := testutil.WriteLines(t, dir, "build.manifest", "openssl armv7 1.1.1d")
	lookupFile := testutil.WriteLines(t, dir, "kblookup.out",
		"openssl;OpenSSL;https://www.openssl.org;https://kb/api/components/42;1.1.1d;https://kb/api/components/42/versions/2;",
	)

	out, err := executeCLI(t, "import", "-c", manifestFile, "-k", lookupFile,
		"-p", "image", "-v", "1.0", "-d", "--server", srv.URL, "--summary-format", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "added: 1")
	assert.Contains(t, out, "deleted: 0")
}
