package diffengine

import (
	"bytes"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// binarySniffLen is the window spec.md §4.4.4 checks for a NUL byte to
// decide a file is binary.
const binarySniffLen = 8000

// IsBinary reports whether data contains a NUL byte in its first 8000
// bytes (spec.md §4.4.4).
func IsBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// DefaultContextLines is the unified diff's default context window
// (spec.md §4.4.4).
const DefaultContextLines = 3

// UnifiedDiff renders a line-mode unified diff between oldText and
// newText with contextLines of surrounding context (0 means
// DefaultContextLines). It tokenizes to whole lines before diffing
// (diffmatchpatch's own line-mode pattern: DiffLinesToChars then
// DiffMain over the resulting char stream then DiffCharsToLines) so the
// diff operates on lines, not characters.
func UnifiedDiff(oldText, newText string, contextLines int) string {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	dmp := diffmatchpatch.New()
	charsOld, charsNew, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(charsOld, charsNew, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	return renderUnified(diffs, contextLines)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// renderUnified turns a diffmatchpatch line-level diff into standard
// "-"/"+"/" " unified-diff text, trimming unchanged runs down to
// contextLines on each side of a change.
func renderUnified(diffs []diffmatchpatch.Diff, contextLines int) string {
	type tagged struct {
		op   diffmatchpatch.Operation
		line string
	}
	var all []tagged
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			all = append(all, tagged{op: d.Type, line: line})
		}
	}

	var buf bytes.Buffer
	changed := make([]bool, len(all))
	for i, t := range all {
		if t.op != diffmatchpatch.DiffEqual {
			changed[i] = true
		}
	}

	included := make([]bool, len(all))
	for i, c := range changed {
		if !c {
			continue
		}
		lo := i - contextLines
		if lo < 0 {
			lo = 0
		}
		hi := i + contextLines
		if hi >= len(all) {
			hi = len(all) - 1
		}
		for j := lo; j <= hi; j++ {
			included[j] = true
		}
	}

	prevIncluded := false
	for i, t := range all {
		if !included[i] {
			prevIncluded = false
			continue
		}
		if !prevIncluded && i > 0 {
			buf.WriteString("@@ ... @@\n")
		}
		prevIncluded = true

		prefix := " "
		switch t.op {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		buf.WriteString(prefix)
		buf.WriteString(t.line)
		if len(t.line) == 0 || t.line[len(t.line)-1] != '\n' {
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// BinarySummary renders §4.4.4's one-line summary for a file already
// classified as binary: a recognized magic number adds a concrete kind
// ("binary file (image/png, 4.1 KiB)"); an unrecognized one falls back
// to "data".
func BinarySummary(data []byte) string {
	kind := "data"
	if k, err := filetype.Match(data); err == nil && k != filetype.Unknown {
		kind = k.MIME.Value
	}
	return fmt.Sprintf("binary file (%s, %s)", kind, humanSize(len(data)))
}

func humanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for d := int64(n) / unit; d >= unit; d /= unit {
		div *= unit
		exp++
	}
	units := []string{"KiB", "MiB", "GiB", "TiB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}
