// Package lookup implements the KB lookup file: a semicolon-delimited cache of
// manifest components and the KB component and version references they
// resolved to.
//
// Each line has the form
//
//	<localName>;<kbName>;<kbSourceUrl>;<kbComponentUrl|NO MATCH>;[<version>;<kbVersionUrl|NO VERSION MATCH>;]*
//
// Lines are only ever appended, or extended with new version pairs.
package lookup

import (
	"fmt"
	"strings"

	oerrors "github.com/yoctobom/cli/internal/errors"
)

// Sentinels written in place of URLs.
const (
	NoMatch        = "NO MATCH"
	NoVersionMatch = "NO VERSION MATCH"
)

const (
	sep            = ";"
	requiredFields = 4
)

// ErrInvalidRecord is returned for lines with fewer than four fields.
var ErrInvalidRecord = fmt.Errorf("invalid lookup record: %w", oerrors.ErrValidation)

// VersionRef is one resolved (version, version URL) pair of a record.
type VersionRef struct {
	Version string
	URL     string
}

// Record is one line of the lookup file.
type Record struct {
	LocalName    string
	KBName       string
	SourceURL    string
	ComponentURL string
	Versions     []VersionRef
}

// NewMatchRecord builds the record for a newly matched component. ';' is
// removed from sourceURL.
func NewMatchRecord(localName, kbName, sourceURL, componentURL, version, versionURL string) Record {
	return Record{
		LocalName:    localName,
		KBName:       kbName,
		SourceURL:    SanitizeField(sourceURL),
		ComponentURL: componentURL,
		Versions:     []VersionRef{{Version: version, URL: versionURL}},
	}
}

// NewNoMatchRecord builds the record for a component the KB does not know.
func NewNoMatchRecord(localName, version string) Record {
	return Record{
		LocalName:    localName,
		ComponentURL: NoMatch,
		Versions:     []VersionRef{{Version: version, URL: NoVersionMatch}},
	}
}

// IsNoMatch reports whether the record marks an unknown component.
func (r Record) IsNoMatch() bool {
	return r.ComponentURL == NoMatch
}

// String formats the record as a lookup line without the trailing newline.
func (r Record) String() string {
	var b strings.Builder
	for _, f := range []string{r.LocalName, r.KBName, r.SourceURL, r.ComponentURL} {
		b.WriteString(f)
		b.WriteString(sep)
	}
	for _, v := range r.Versions {
		b.WriteString(formatPair(v.Version, v.URL))
	}
	return b.String()
}

func formatPair(version, url string) string {
	return version + sep + url + sep
}

// ParseRecord parses one lookup line. Trailing whitespace is ignored, as is a
// dangling version without a URL.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, " \t\r\n"), sep)
	if len(fields) < requiredFields {
		return Record{}, fmt.Errorf("%w: %q has %d fields", ErrInvalidRecord, line, len(fields))
	}

	r := Record{
		LocalName:    fields[0],
		KBName:       fields[1],
		SourceURL:    fields[2],
		ComponentURL: fields[3],
	}
	for i := requiredFields; i < len(fields)-1; i += 2 {
		r.Versions = append(r.Versions, VersionRef{Version: fields[i], URL: fields[i+1]})
	}
	return r, nil
}

// SanitizeField removes the field separator from s.
func SanitizeField(s string) string {
	return strings.ReplaceAll(s, sep, "")
}
