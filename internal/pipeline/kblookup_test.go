package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/kb/kbtest"
	"github.com/yoctobom/cli/internal/lookup"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/testutil"
)

type lookupFixture struct {
	dir      string
	fake     *kbtest.Fake
	out      *bytes.Buffer
	progress *output.Progress

	openssl string
	rules   string
}

func newLookupFixture(t *testing.T) *lookupFixture {
	t.Helper()
	f := &lookupFixture{
		dir:  t.TempDir(),
		fake: kbtest.New(),
		out:  &bytes.Buffer{},
	}
	f.progress = newTestProgress(t, f.out, "")
	f.openssl = f.fake.AddComponent("OpenSSL", "https://www.openssl.org;", "1.1.1c", "v1.1.1d")
	f.fake.Index("openssl", f.openssl)
	f.rules = testutil.WriteLines(t, f.dir, "replace.txt", "kernel-module;SKIP")
	return f
}

func newTestProgress(t *testing.T, out *bytes.Buffer, listPath string) *output.Progress {
	t.Helper()
	p, err := output.NewProgress(out, listPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func (f *lookupFixture) options(t *testing.T, manifestLines ...string) LookupOptions {
	t.Helper()
	return LookupOptions{
		ManifestFile: testutil.WriteLines(t, f.dir, "image.manifest", manifestLines...),
		RulesFile:    f.rules,
		OutputLookup: filepath.Join(f.dir, "kblookup.out"),
		MaxNew:       config.DefaultMaxNew,
	}
}

func (f *lookupFixture) opensslRecord(versions ...string) string {
	line := "openssl;OpenSSL;https://www.openssl.org;" + f.openssl + ";"
	for _, v := range versions {
		u := f.fake.VersionURL(f.openssl, v)
		if u == "" {
			u = f.fake.VersionURL(f.openssl, "v"+v)
		}
		line += v + ";" + u + ";"
	}
	return line
}

func TestRunLookupNewComponents(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t,
		"openssl armv7 1.1.1d",
		"kernel-module-6lowpan aarch64 4.14.68",
		"mystery armv7 1.0",
	)

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.NewMatch)
	assert.Equal(t, 1, stats.NotInKB)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Searches)
	assert.False(t, stats.Truncated)
	assert.Equal(t, []string{"openssl", "mystery"}, f.fake.Searches)

	assert.Equal(t, []string{
		f.opensslRecord("1.1.1d"),
		"mystery;;;NO MATCH;1.0;NO VERSION MATCH;",
	}, testutil.ReadLines(t, opts.OutputLookup))

	out := f.out.String()
	assert.Contains(t, out, "kernel-module-6lowpan/4.14.68")
	assert.Contains(t, out, output.StatusSkipped)
	assert.Contains(t, out, "'OpenSSL/v1.1.1d'")
	assert.Contains(t, out, "Will write to output kbfile "+opts.OutputLookup)
}

func TestRunLookupIsIdempotent(t *testing.T) {
	f := newLookupFixture(t)
	lines := []string{
		"openssl armv7 1.1.1d",
		"kernel-module-6lowpan aarch64 4.14.68",
		"mystery armv7 1.0",
	}
	first := f.options(t, lines...)
	_, err := RunLookup(context.Background(), f.fake, f.progress, first)
	require.NoError(t, err)
	searches := len(f.fake.Searches)

	second := f.options(t, lines...)
	second.InputLookup = first.OutputLookup
	second.OutputLookup = filepath.Join(f.dir, "second.out")
	second.Append = true

	stats, err := RunLookup(context.Background(), f.fake, f.progress, second)
	require.NoError(t, err)

	assert.Len(t, f.fake.Searches, searches, "no new KB searches")
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 1, stats.AlreadyMatched)
	assert.Equal(t, 1, stats.NoLookupMatch)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, testutil.ReadLines(t, first.OutputLookup), testutil.ReadLines(t, second.OutputLookup))
}

func TestRunLookupNewVersionOfCachedComponent(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 1.1.1d")
	opts.InputLookup = testutil.WriteLines(t, f.dir, "input.out", f.opensslRecord("1.1.1c"), "zlib;zlib;;https://kb.test/api/components/z;1.2.11;https://kb.test/api/components/z/versions/v1;")
	opts.Append = true

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewVersion)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, f.fake.Searches)
	assert.Equal(t, []string{f.openssl}, f.fake.ComponentFetches)

	lines := testutil.ReadLines(t, opts.OutputLookup)
	require.Len(t, lines, 2)
	assert.Equal(t, f.opensslRecord("1.1.1c", "1.1.1d"), lines[0])
	assert.Contains(t, lines[1], "zlib;zlib;", "other records are untouched")
}

func TestRunLookupNewVersionRecordOnlyInInput(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 1.1.1d")
	opts.InputLookup = testutil.WriteLines(t, f.dir, "input.out", f.opensslRecord("1.1.1c"))

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewVersion)
	assert.Equal(t, []string{f.opensslRecord("1.1.1d")}, testutil.ReadLines(t, opts.OutputLookup))
	assert.Equal(t, []string{f.opensslRecord("1.1.1c")}, testutil.ReadLines(t, opts.InputLookup))
}

func TestRunLookupNoVersionMatchUpdatesRecord(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 9.9.9")
	opts.InputLookup = testutil.WriteLines(t, f.dir, "input.out", f.opensslRecord("1.1.1c"))
	opts.Append = true

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NoVersion)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, []string{"openssl"}, f.fake.Searches)
	assert.Equal(t, []string{f.opensslRecord("1.1.1c") + "9.9.9;NO VERSION MATCH;"}, testutil.ReadLines(t, opts.OutputLookup))
	assert.Contains(t, f.out.String(), output.StatusNoVersionMatch)
}

func TestRunLookupNoVersionMatchRecordOnlyInInput(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 9.9.9")
	opts.InputLookup = testutil.WriteLines(t, f.dir, "input.out", f.opensslRecord("1.1.1c"))

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NoVersion)
	lines := testutil.ReadLines(t, opts.OutputLookup)
	require.Len(t, lines, 1)
	assert.Equal(t, f.opensslRecord()+"9.9.9;NO VERSION MATCH;", lines[0])

	rec, err := lookup.ParseRecord(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "OpenSSL", rec.KBName)
	assert.Equal(t, "https://www.openssl.org", rec.SourceURL)
}

func TestRunLookupKnownComponentFoundUnderNewName(t *testing.T) {
	f := newLookupFixture(t)
	ssl3 := f.fake.AddComponent("OpenSSL 3", "https://www.openssl.org", "3.0.2")
	f.fake.Index("openssl", ssl3)

	opts := f.options(t, "openssl armv7 3.0.2")
	opts.InputLookup = testutil.WriteLines(t, f.dir, "input.out", f.opensslRecord("1.1.1c"))
	opts.Append = true

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NewMatch)
	lines := testutil.ReadLines(t, opts.OutputLookup)
	require.Len(t, lines, 2)
	assert.Equal(t, fmt.Sprintf("openssl;OpenSSL 3;https://www.openssl.org;%s;3.0.2;%s;", ssl3, f.fake.VersionURL(ssl3, "3.0.2")), lines[1])
}

func TestRunLookupStopsAfterMaxNew(t *testing.T) {
	f := newLookupFixture(t)
	var lines []string
	for i := range config.DefaultMaxNew + 10 {
		lines = append(lines, fmt.Sprintf("pkg%d armv7 1.0", i))
	}
	opts := f.options(t, lines...)

	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrLimitReached)
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, config.DefaultMaxNew+1, limitErr.Processed)
	assert.Equal(t, "500 components processed - terminating. Please rerun with -k option to append to kbfile", err.Error())

	require.NotNil(t, stats)
	assert.True(t, stats.Truncated)
	assert.Equal(t, config.DefaultMaxNew+1, stats.Entries)
	assert.Len(t, testutil.ReadLines(t, opts.OutputLookup), config.DefaultMaxNew+1)
	assert.Contains(t, f.out.String(), "Please rerun with -k option")
}

func TestRunLookupResumeAfterLimit(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "a armv7 1", "b armv7 1", "c armv7 1", "d armv7 1")
	opts.MaxNew = 1

	_, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.ErrorIs(t, err, oerrors.ErrLimitReached)
	assert.Len(t, testutil.ReadLines(t, opts.OutputLookup), 2)

	opts.InputLookup = opts.OutputLookup
	opts.MaxNew = 0
	stats, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.NoLookupMatch)
	assert.Equal(t, 2, stats.NotInKB)
	assert.Len(t, testutil.ReadLines(t, opts.OutputLookup), 4)
}

func TestRunLookupInvalidManifest(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 1.1.1d", "broken-line")

	_, err := RunLookup(context.Background(), f.fake, f.progress, opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
	assert.Empty(t, f.fake.Searches)
	assert.NoFileExists(t, opts.OutputLookup)
}

func TestRunLookupMissingInputLookup(t *testing.T) {
	f := newLookupFixture(t)
	opts := f.options(t, "openssl armv7 1.1.1d")
	opts.InputLookup = filepath.Join(f.dir, "absent.out")

	_, err := RunLookup(context.Background(), f.fake, f.progress, opts)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestRunLookupWritesListFile(t *testing.T) {
	f := newLookupFixture(t)
	listPath := filepath.Join(f.dir, "list.txt")
	progress := newTestProgress(t, &bytes.Buffer{}, listPath)

	_, err := RunLookup(context.Background(), f.fake, progress, f.options(t, "kernel-module-6lowpan aarch64 4.14.68"))
	require.NoError(t, err)
	require.NoError(t, progress.Close())

	assert.Contains(t, testutil.ReadLines(t, listPath), "Manifest Component = 'kernel-module-6lowpan/4.14.68' - SKIPPED")
}

func TestRunLookupCancelled(t *testing.T) {
	f := newLookupFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunLookup(ctx, f.fake, f.progress, f.options(t, "openssl armv7 1.1.1d"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.fake.Searches)
}

func TestLookupOptionsValidate(t *testing.T) {
	valid := LookupOptions{ManifestFile: "m", RulesFile: "r", OutputLookup: "o"}

	tests := []struct {
		name    string
		mutate  func(*LookupOptions)
		wantErr bool
	}{
		{name: "valid", mutate: func(*LookupOptions) {}},
		{name: "missing manifest", mutate: func(o *LookupOptions) { o.ManifestFile = "" }, wantErr: true},
		{name: "missing rules", mutate: func(o *LookupOptions) { o.RulesFile = "" }, wantErr: true},
		{name: "missing output", mutate: func(o *LookupOptions) { o.OutputLookup = "" }, wantErr: true},
		{name: "append without input", mutate: func(o *LookupOptions) { o.Append = true }, wantErr: true},
		{name: "append with input", mutate: func(o *LookupOptions) {
			o.Append = true
			o.InputLookup = "k"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, oerrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLookupStatsCounters(t *testing.T) {
	stats := &LookupStats{Entries: 9, Skipped: 1, NewMatch: 4}
	counters := stats.Counters()

	require.Len(t, counters, 8)
	assert.Equal(t, output.Counter{Label: "Entries processed from component file", Value: 9}, counters[0])
	assert.Equal(t, output.Counter{Label: "Components with New Match", Value: 4}, counters[7])
}
