// Package output writes matches to the user as they are found.
//
// The text format is one line per match:
//
//	<canonical-archive-path>: <dotted-entry-name>
//
// json writes one object per line and yaml one document per match.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"jarscan/internal/inspect"
)

// Format represents the output format type
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// ParseFormat converts a string to a Format, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options configures a Printer.
type Options struct {
	Format Format
	// Color highlights the archive path in text output.
	Color bool
	// RunID is attached to structured records when non-empty.
	RunID string
}

// record is the structured form of a match.
type record struct {
	Archive string `json:"archive" yaml:"archive"`
	Class   string `json:"class" yaml:"class"`
	Entry   string `json:"entry" yaml:"entry"`
	Run     string `json:"run,omitempty" yaml:"run,omitempty"`
}

// Printer is an inspect.Emitter that serializes matches to a writer.
// Emit is safe for concurrent use; each match is written whole.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	format  Format
	runID   string
	archive *color.Color
	jsonEnc *json.Encoder
	yamlEnc *yaml.Encoder
	count   int
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) (*Printer, error) {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}

	p := &Printer{w: w, format: format, runID: opts.RunID}
	switch format {
	case FormatJSON:
		p.jsonEnc = json.NewEncoder(w)
		p.jsonEnc.SetEscapeHTML(false)
	case FormatYAML:
		p.yamlEnc = yaml.NewEncoder(w)
		p.yamlEnc.SetIndent(2)
	default:
		if opts.Color {
			p.archive = color.New(color.FgCyan)
			p.archive.EnableColor()
		}
	}
	return p, nil
}

// Emit writes one match.
func (p *Printer) Emit(m inspect.Match) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch p.format {
	case FormatJSON:
		err = p.jsonEnc.Encode(p.record(m))
	case FormatYAML:
		err = p.yamlEnc.Encode(p.record(m))
	default:
		archive := m.Archive
		if p.archive != nil {
			archive = p.archive.Sprint(archive)
		}
		_, err = fmt.Fprintf(p.w, "%s: %s\n", archive, m.Class)
	}
	if err != nil {
		return fmt.Errorf("write match: %w", err)
	}
	p.count++
	return nil
}

// Count returns the number of matches written.
func (p *Printer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Close flushes any buffered structured output.
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.yamlEnc != nil {
		return p.yamlEnc.Close()
	}
	return nil
}

func (p *Printer) record(m inspect.Match) record {
	return record{Archive: m.Archive, Class: m.Class, Entry: m.Entry, Run: p.runID}
}
