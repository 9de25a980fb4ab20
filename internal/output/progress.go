package output

import (
	"fmt"
	"io"
	"os"
)

// Progress writes per-component progress lines to stdout and, when a list
// file is configured, appends the same plain text to it.
type Progress struct {
	out  io.Writer
	list io.WriteCloser
}

// NewProgress returns a Progress writing to out. A non-empty listPath is
// opened for append and receives every line without styling.
func NewProgress(out io.Writer, listPath string) (*Progress, error) {
	p := &Progress{out: out}
	if listPath == "" {
		return p, nil
	}
	f, err := os.OpenFile(listPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening list file %s: %w", listPath, err)
	}
	p.list = f
	return p, nil
}

// Printf writes a formatted fragment without a trailing newline.
func (p *Progress) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	p.write(s, s)
}

// Println writes a line.
func (p *Progress) Println(line string) {
	p.write(line+"\n", line+"\n")
}

// Component starts the progress line for one manifest component.
func (p *Progress) Component(prefix, key string) {
	plain := fmt.Sprintf("%s '%s'", prefix, key)
	styled := fmt.Sprintf("%s '%s'", prefix, StyleNoun.Render(key))
	p.write(plain, styled)
}

// Status ends the current progress line with a status word and an optional
// detail.
func (p *Progress) Status(status, detail string) {
	plain := " - " + status
	styled := " - " + StatusStyle(status).Render(status)
	if detail != "" {
		plain += " " + detail
		styled += " " + detail
	}
	p.write(plain+"\n", styled+"\n")
}

// Close closes the list file.
func (p *Progress) Close() error {
	if p.list == nil {
		return nil
	}
	err := p.list.Close()
	p.list = nil
	return err
}

func (p *Progress) write(plain, styled string) {
	if p.list != nil {
		if _, err := io.WriteString(p.list, plain); err != nil {
			Error("failed to write list file", "err", err)
		}
	}
	_, _ = io.WriteString(p.out, styled)
}
