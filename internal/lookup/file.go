package lookup

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
)

const maxLineSize = 1024 * 1024

// ImportResult summarizes a lookup file import.
type ImportResult struct {
	Records int // records registered in the cache
	NoMatch int // records marking components unknown to the KB
	Invalid int // lines skipped for having fewer than four fields
}

// Import reads the lookup file at path into c. When mirror is not empty and
// differs from path, mirror is truncated and receives a verbatim copy of
// every line read, so that later appends extend the copy.
func (c *Cache) Import(path, mirror string) (ImportResult, error) {
	var res ImportResult

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, oerrors.NewNotFoundError(
				fmt.Sprintf("lookup file %s does not exist", path), path,
				"Run kblookup without -k to create a new lookup file")
		}
		return res, fmt.Errorf("reading lookup file: %w", err)
	}

	if mirror != "" && mirror != path {
		if err := os.WriteFile(mirror, data, 0o644); err != nil {
			return res, fmt.Errorf("copying lookup file to %s: %w", mirror, err)
		}
		output.Debug("mirrored lookup file", "from", path, "to", mirror)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			output.Warn("skipping lookup line", "file", path, "line", lineNo, "err", err)
			res.Invalid++
			continue
		}
		c.Add(rec)
		res.Records++
		if rec.IsNoMatch() {
			res.NoMatch++
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("parsing lookup file %s: %w", path, err)
	}
	return res, nil
}

// Append adds r as a new line at the end of the lookup file at path,
// creating the file if needed.
func Append(path string, r Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening lookup file for append: %w", err)
	}
	if _, err := io.WriteString(f, r.String()+"\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to lookup file: %w", err)
	}
	return f.Close()
}

// UpdateEntry rewrites the lookup file at path, adding a version pair to
// every line whose local name is name and whose component URL field is
// compURL. No other line changes. It reports whether any line was updated.
func UpdateEntry(path, name, compURL, version, versionURL string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			output.Debug("lookup file missing, nothing to update", "file", path)
			return false, nil
		}
		return false, fmt.Errorf("reading lookup file: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(version) + len(versionURL) + 2)
	updated := false

	for _, line := range splitLinesKeepEnds(data) {
		if !lineMatches(line, name, compURL) {
			buf.WriteString(line)
			continue
		}
		buf.WriteString(strings.TrimRight(line, " \t\r\n"))
		buf.WriteString(formatPair(version, versionURL))
		buf.WriteString("\n")
		updated = true
	}

	if !updated {
		return false, nil
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return false, err
	}
	output.Debug("updated lookup entry", "file", path, "component", name, "version", version)
	return true, nil
}

func lineMatches(line, name, compURL string) bool {
	fields := strings.SplitN(line, sep, requiredFields+1)
	if len(fields) < requiredFields {
		return false
	}
	return fields[0] == name && strings.TrimRight(fields[3], " \t\r\n") == compURL
}

func splitLinesKeepEnds(data []byte) []string {
	var lines []string
	s := string(data)
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("writing lookup file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing lookup file: %w", err)
	}
	return nil
}
