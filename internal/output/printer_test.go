package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"jarscan/internal/inspect"
)

var sample = []inspect.Match{
	{Archive: "/libs/a/b.jar", Class: "com.example.Logger", Entry: "com/example/Logger.class"},
	{Archive: "/libs/x.jar", Class: "Main", Entry: "Main.class"},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, Options{Format: FormatText})
	require.NoError(t, err)

	for _, m := range sample {
		require.NoError(t, p.Emit(m))
	}
	require.NoError(t, p.Close())

	assert.Equal(t, "/libs/a/b.jar: com.example.Logger\n/libs/x.jar: Main\n", buf.String())
	assert.Equal(t, 2, p.Count())
}

func TestPrinter_TextColor(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, Options{Format: FormatText, Color: true})
	require.NoError(t, err)

	require.NoError(t, p.Emit(sample[1]))

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "/libs/x.jar")
	assert.True(t, strings.HasSuffix(out, ": Main\n"), out)
}

func TestPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, Options{Format: FormatJSON, RunID: "run-1"})
	require.NoError(t, err)

	for _, m := range sample {
		require.NoError(t, p.Emit(m))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, map[string]string{
		"archive": "/libs/a/b.jar",
		"class":   "com.example.Logger",
		"entry":   "com/example/Logger.class",
		"run":     "run-1",
	}, rec)
}

func TestPrinter_YAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, Options{Format: FormatYAML})
	require.NoError(t, err)

	for _, m := range sample {
		require.NoError(t, p.Emit(m))
	}
	require.NoError(t, p.Close())

	dec := yaml.NewDecoder(strings.NewReader(buf.String()))
	var got []record
	for {
		var r record
		if err := dec.Decode(&r); err != nil {
			break
		}
		got = append(got, r)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "Main", got[1].Class)
	assert.Empty(t, got[1].Run)
	assert.Contains(t, buf.String(), "---")
}

func TestPrinter_UnknownFormat(t *testing.T) {
	_, err := NewPrinter(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestPrinter_ConcurrentEmitsStayWhole(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, Options{Format: FormatText})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Emit(sample[0])
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Equal(t, "/libs/a/b.jar: com.example.Logger", line)
	}
	assert.Equal(t, 50, p.Count())
}
