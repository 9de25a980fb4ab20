// Package e2e provides end-to-end tests for the yoctobom binary.
package e2e

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yoctobomBinary string

func TestMain(m *testing.M) {
	// Build the binary once for all tests
	tmpDir, err := os.MkdirTemp("", "yoctobom-e2e-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}

	yoctobomBinary = filepath.Join(tmpDir, "yoctobom")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	cmd := exec.CommandContext(ctx, "go", "build", "-o", yoctobomBinary, "../../cmd/yoctobom")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		cancel()
		os.RemoveAll(tmpDir)
		panic("failed to build yoctobom binary: " + err.Error())
	}
	cancel() // Call cancel explicitly before os.Exit

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// runYoctobom runs the binary in workDir with an isolated HOME and returns
// its output and exit code.
func runYoctobom(t *testing.T, workDir string, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, yoctobomBinary, args...)
	cmd.Dir = workDir
	cmd.Env = []string{"HOME=" + workDir, "PATH=" + os.Getenv("PATH")}

	stdoutBytes, err := cmd.Output()
	var stderrBytes []byte
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderrBytes = exitErr.Stderr
		return string(stdoutBytes), string(stderrBytes), exitErr.ExitCode()
	}
	require.NoError(t, err)
	return string(stdoutBytes), "", 0
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// emptyKB answers every search with zero hits.
func emptyKB(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search/components" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestE2E_Version(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, code := runYoctobom(t, dir, "version")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "yoctobom version")
	assert.FileExists(t, filepath.Join(dir, "yoctobom.log"))
}

func TestE2E_KBLookup(t *testing.T) {
	dir := t.TempDir()
	srv := emptyKB(t)
	writeFile(t, dir, "build.manifest", "kernel-module-6lowpan aarch64 4.14.68\nmystery armv7 1.0\n")
	writeFile(t, dir, "replace.txt", "kernel-module;SKIP\n")

	stdout, stderr, code := runYoctobom(t, dir, "kblookup", "-c", "build.manifest", "-r", "replace.txt", "--server", srv.URL)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "KBLOOKUP SUMMARY")

	data, err := os.ReadFile(filepath.Join(dir, "kblookup.out"))
	require.NoError(t, err)
	assert.Equal(t, "mystery;;;NO MATCH;1.0;NO VERSION MATCH;\n", string(data))
}

func TestE2E_KBLookupLimitExitsZero(t *testing.T) {
	dir := t.TempDir()
	srv := emptyKB(t)
	writeFile(t, dir, "build.manifest", "alpha armv7 1.0\nbeta armv7 1.0\ngamma armv7 1.0\n")
	writeFile(t, dir, "replace.txt", "kernel-module;SKIP\n")
	writeFile(t, dir, "config.yaml", "kblookup:\n  maxNew: 1\n")

	stdout, stderr, code := runYoctobom(t, dir, "kblookup", "-c", "build.manifest", "-r", "replace.txt",
		"--config", "config.yaml", "--server", srv.URL)
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Please rerun with -k option to append to kbfile")
}

func TestE2E_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{
			name: "no server is a validation error",
			args: []string{"kblookup", "-c", "build.manifest", "-r", "replace.txt"},
			code: 2,
		},
		{
			name: "missing lookup file",
			args: []string{"import", "-c", "build.manifest", "-k", "absent.out", "-p", "image", "-v", "1.0", "--server", "http://127.0.0.1:1"},
			code: 5,
		},
		{
			name: "missing required flag",
			args: []string{"import", "-c", "build.manifest"},
			code: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "build.manifest", "zlib armv7 1.2.11\n")
			writeFile(t, dir, "replace.txt", "kernel-module;SKIP\n")

			_, stderr, code := runYoctobom(t, dir, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, "Error:")
		})
	}
}
