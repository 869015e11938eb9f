package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// TextEdit replaces the text between two 1-based (line, column) positions
type TextEdit struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Text        string
	HasRange    bool
}

// newFileMinEdits is the edit count above which consecutive single-line
// inserts are treated as a file being streamed in.
const newFileMinEdits = 5

// hunkProximity is the maximum line distance for two edits to share a hunk
const hunkProximity = 3

// parseTextEdits flattens the batched edit arrays of a textEditGroup item
func parseTextEdits(v interface{}) []TextEdit {
	batches, ok := asSlice(v)
	if !ok {
		return nil
	}
	var edits []TextEdit
	for _, batch := range batches {
		items, ok := asSlice(batch)
		if !ok {
			continue
		}
		for _, item := range items {
			m, ok := asMap(item)
			if !ok {
				continue
			}
			r, hasRange := m["range"]
			rm, _ := asMap(r)
			edits = append(edits, TextEdit{
				StartLine:   intOr(rm, "startLineNumber", 1),
				StartColumn: intOr(rm, "startColumn", 1),
				EndLine:     intOr(rm, "endLineNumber", 1),
				EndColumn:   intOr(rm, "endColumn", 1),
				Text:        getString(m, "text"),
				HasRange:    hasRange,
			})
		}
	}
	return edits
}

func intOr(m map[string]interface{}, key string, def int) int {
	if v := getInt64(m, key); v != nil {
		return int(*v)
	}
	return def
}

// ApplyEdits applies edits to original from the last position to the first
// and returns the modified text. Edits whose positions fall outside the
// current text are skipped. ok is false when there is nothing to apply to.
func ApplyEdits(original string, edits []TextEdit) (string, bool) {
	if original == "" || len(edits) == 0 {
		return "", false
	}

	lines := strings.Split(original, "\n")

	var ranged []TextEdit
	for _, e := range edits {
		if e.HasRange {
			ranged = append(ranged, e)
		}
	}
	sort.SliceStable(ranged, func(i, j int) bool {
		if ranged[i].StartLine != ranged[j].StartLine {
			return ranged[i].StartLine > ranged[j].StartLine
		}
		return ranged[i].StartColumn > ranged[j].StartColumn
	})

	for _, e := range ranged {
		sl, sc := e.StartLine-1, e.StartColumn-1
		el, ec := e.EndLine-1, e.EndColumn-1

		if sl < 0 || el >= len(lines) || sl > el {
			continue
		}
		if sc < 0 || ec < 0 {
			continue
		}

		first := []rune(lines[sl])
		last := []rune(lines[el])
		if sc > len(first) || ec > len(last) {
			continue
		}

		if sl == el {
			if sc > ec {
				continue
			}
			lines[sl] = string(first[:sc]) + e.Text + string(first[ec:])
			continue
		}

		replacement := strings.Split(string(first[:sc])+e.Text+string(last[ec:]), "\n")
		tail := append([]string{}, lines[el+1:]...)
		lines = append(append(lines[:sl], replacement...), tail...)
	}

	return strings.Join(lines, "\n"), true
}

// UnifiedDiff returns a unified diff of original and modified with a/ and b/ headers
func UnifiedDiff(original, modified, filename string) string {
	diff := difflib.UnifiedDiff{
		A:        splitLinesKeepEnds(original),
		B:        splitLinesKeepEnds(modified),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// splitLinesKeepEnds splits s into lines that each end in a newline. A
// missing final newline is added so a changed last line diffs as separate
// '-' and '+' lines.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}

// ReconstructDiff renders edits as a diff. With known prior content the
// edits are applied and a real unified diff is produced; otherwise only the
// inserted text can be shown.
func ReconstructDiff(edits []TextEdit, original, filename string) string {
	if len(edits) == 0 {
		return ""
	}
	if filename == "" {
		filename = "file"
	}

	if original != "" {
		if modified, ok := ApplyEdits(original, edits); ok {
			if diff := UnifiedDiff(original, modified, filename); diff != "" {
				return diff
			}
		}
	}

	return SynthesizeDiff(edits)
}

type lineInsert struct {
	line int
	text string
}

// SynthesizeDiff builds an insert-only diff from edits when the original text is unknown
func SynthesizeDiff(edits []TextEdit) string {
	var inserts []lineInsert
	for _, e := range edits {
		if e.Text != "" {
			inserts = append(inserts, lineInsert{line: e.StartLine, text: e.Text})
		}
	}
	if len(inserts) == 0 {
		return ""
	}

	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].line < inserts[j].line })

	if looksLikeNewFile(inserts) {
		var combined strings.Builder
		for _, ins := range inserts {
			combined.WriteString(ins.text)
		}
		out := []string{"@@ New file @@"}
		for _, line := range strings.Split(combined.String(), "\n") {
			out = append(out, "+ "+line)
		}
		return strings.TrimRight(strings.Join(out, "\n"), " \t\r\n")
	}

	groups := [][]lineInsert{{inserts[0]}}
	for _, ins := range inserts[1:] {
		cur := groups[len(groups)-1]
		if ins.line-cur[len(cur)-1].line <= hunkProximity {
			groups[len(groups)-1] = append(cur, ins)
		} else {
			groups = append(groups, []lineInsert{ins})
		}
	}

	var out []string
	for _, g := range groups {
		start, end := g[0].line, g[len(g)-1].line
		if start == end {
			out = append(out, fmt.Sprintf("@@ Line %d @@", start))
		} else {
			out = append(out, fmt.Sprintf("@@ Lines %d-%d @@", start, end))
		}
		for _, ins := range g {
			for _, line := range strings.Split(ins.text, "\n") {
				out = append(out, "+ "+line)
			}
		}
		out = append(out, "")
	}
	return strings.TrimRight(strings.Join(out, "\n"), " \t\r\n")
}

// looksLikeNewFile reports whether the leading inserts land on consecutive lines
func looksLikeNewFile(inserts []lineInsert) bool {
	if len(inserts) <= newFileMinEdits {
		return false
	}
	limit := len(inserts)
	if limit > 10 {
		limit = 10
	}
	for i := 1; i < limit; i++ {
		if inserts[i].line != inserts[i-1].line+1 {
			return false
		}
	}
	return true
}

// readFileCache holds file contents seen in read-tool results earlier in a response
type readFileCache map[string]string

// lookup matches by full path, then by file name key, then by base name
func (c readFileCache) lookup(path, filename string) string {
	if len(c) == 0 {
		return ""
	}
	if content := c[path]; content != "" {
		return content
	}
	if content := c[filename]; content != "" {
		return content
	}
	base := baseName(path)
	if base == "" {
		return ""
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if baseName(k) == base {
			return c[k]
		}
	}
	return ""
}
