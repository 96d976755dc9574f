package splice

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pyshare-dev/pyshare/internal/parser"
)

// Edit replaces Span of the original source with Text. An empty span is an
// insertion at Span.Start.
type Edit struct {
	Span   parser.Span
	Text   string
	Reason string
}

// Apply replays source with edits applied. Edits may be given in any order
// but must not overlap; insertions at the same offset keep their relative
// order.
func Apply(source []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	var out bytes.Buffer
	out.Grow(len(source))
	cursor := 0
	for _, edit := range sorted {
		if edit.Span.Start < 0 || edit.Span.End > len(source) || edit.Span.Start > edit.Span.End {
			return nil, fmt.Errorf("edit %q out of range [%d,%d) for %d bytes", edit.Reason, edit.Span.Start, edit.Span.End, len(source))
		}
		if edit.Span.Start < cursor {
			return nil, fmt.Errorf("edit %q at offset %d overlaps a previous edit", edit.Reason, edit.Span.Start)
		}
		out.Write(source[cursor:edit.Span.Start])
		out.WriteString(edit.Text)
		cursor = edit.Span.End
	}
	out.Write(source[cursor:])

	return out.Bytes(), nil
}
