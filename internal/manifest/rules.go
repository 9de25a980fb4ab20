package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
)

// SkipMarker in the second column turns a rules line into a skip prefix.
const SkipMarker = "SKIP"

// Rules holds component name replacements and skip prefixes loaded from a
// replacement file. Lines have the form
//
//	<name>;<replacement>
//	<prefix>;SKIP
type Rules struct {
	// Renames maps a manifest name to the name searched for in the KB.
	Renames map[string]string

	// SkipPrefixes are tested in file order.
	SkipPrefixes []string
}

// NewRules returns an empty rule set.
func NewRules() *Rules {
	return &Rules{Renames: make(map[string]string)}
}

// Rename returns the replacement for name, if one is configured.
func (r *Rules) Rename(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	repl, ok := r.Renames[name]
	return repl, ok
}

// ParseRules reads a replacement file. Lines without a ';' are ignored.
func ParseRules(rd io.Reader) (*Rules, error) {
	rules := NewRules()
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r\n")
		if !strings.Contains(line, ";") {
			continue
		}
		cols := strings.Split(line, ";")
		if cols[1] == SkipMarker {
			rules.SkipPrefixes = append(rules.SkipPrefixes, cols[0])
			output.Info("will skip components", "prefix", cols[0])
			continue
		}
		rules.Renames[cols[0]] = cols[1]
		output.Info("adding replacement", "component", cols[0], "replacement", cols[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replacement file: %w", err)
	}
	return rules, nil
}

// LoadRules reads the replacement file at path.
func LoadRules(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.NewNotFoundError(fmt.Sprintf("replacement file %s does not exist", path), path, "")
		}
		return nil, fmt.Errorf("opening replacement file %s: %w", path, err)
	}
	defer f.Close()

	return ParseRules(f)
}
