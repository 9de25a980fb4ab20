// Package manifest parses build-system image manifests and the replacement/skip
// rules file that accompanies them.
//
// A manifest line has the form "<name> <arch> <version>", for example
//
//	alsa-utils-alsamixer aarch64 1.1.5
//
// as produced under tmp/deploy/images/<machine>/<image>-<machine>.manifest.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	oerrors "github.com/yoctobom/cli/internal/errors"
)

// Entry is one parsed manifest record.
type Entry struct {
	// Name is the local package name.
	Name string

	// Version is the package version with any "+<digits>" suffix removed.
	Version string

	// Skip is true when Name starts with one of the configured skip prefixes.
	Skip bool

	// SkipPrefix is the prefix that caused Skip (empty when not skipped).
	SkipPrefix string
}

// Key returns the "<name>/<version>" pair used to index lookup results.
func (e Entry) Key() string {
	return e.Name + "/" + e.Version
}

// ErrInvalidLine is returned for lines that do not have exactly three tokens.
var ErrInvalidLine = fmt.Errorf("%w: invalid build manifest line", oerrors.ErrValidation)

// ParseLine parses a single manifest line. skipPrefixes are tested in order;
// the first prefix the name starts with marks the entry as skipped.
func ParseLine(line string, skipPrefixes []string) (Entry, error) {
	fields := strings.Split(strings.TrimRight(line, " \t\r\n"), " ")
	if len(fields) != 3 {
		return Entry{}, fmt.Errorf("%w: expecting '<comp> <arch> <version>', got %q", ErrInvalidLine, strings.TrimSpace(line))
	}

	entry := Entry{
		Name:    fields[0],
		Version: TrimBuildSuffix(fields[2]),
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(entry.Name, prefix) {
			entry.Skip = true
			entry.SkipPrefix = prefix
			break
		}
	}
	return entry, nil
}

// TrimBuildSuffix drops a trailing "+<digits>" from version. Only the first
// '+' is considered, and only when everything after it is a non-empty run of
// ASCII digits; "1.2+git0+abc" is returned unchanged.
func TrimBuildSuffix(version string) string {
	pos := strings.IndexByte(version, '+')
	if pos < 0 || pos == len(version)-1 {
		return version
	}
	for _, r := range version[pos+1:] {
		if r < '0' || r > '9' {
			return version
		}
	}
	return version[:pos]
}

// Parse reads every manifest line from r. Blank lines are ignored. The first
// malformed line stops parsing; the returned error is a DetailError carrying
// the source name and line number.
func Parse(r io.Reader, source string, rules *Rules) ([]Entry, error) {
	var skip []string
	if rules != nil {
		skip = rules.SkipPrefixes
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseLine(line, skip)
		if err != nil {
			return nil, &oerrors.DetailError{
				Type:     "invalid build manifest file format",
				Message:  err.Error(),
				Location: fmt.Sprintf("%s:%d", source, lineNo),
				Hint:     "Each line must be '<component> <arch> <version>' separated by single spaces",
				Cause:    err,
			}
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", source, err)
	}
	return entries, nil
}

// ReadFile opens and parses a manifest file.
func ReadFile(path string, rules *Rules) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.NewNotFoundError(fmt.Sprintf("manifest file %s does not exist", path), path, "")
		}
		return nil, fmt.Errorf("opening manifest %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, path, rules)
}
