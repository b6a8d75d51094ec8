package pdf

import (
	"math"
	"strings"
)

// LineThreshold is the vertical distance, in layout units, above which two
// runs belong to different lines.
const LineThreshold = 5.0

// wordGapRatio of the font size is the horizontal gap read as a word break.
const wordGapRatio = 0.25

// Run is one positioned piece of text as found in the content stream.
type Run struct {
	X        float64
	Y        float64
	W        float64
	FontSize float64
	S        string
}

// ReconstructLines rebuilds lines from runs in stream order. A new line
// starts whenever the vertical delta to the previous run exceeds threshold.
// Within a line a space is inserted for gaps wider than a fraction of the
// font size, unless one side already provides it.
func ReconstructLines(runs []Run, threshold float64) string {
	var sb strings.Builder
	var prev *Run
	for i := range runs {
		r := &runs[i]
		if r.S == "" {
			continue
		}
		if prev != nil {
			if math.Abs(r.Y-prev.Y) > threshold {
				sb.WriteByte('\n')
			} else if gap := r.X - (prev.X + prev.W); r.FontSize > 0 && gap > r.FontSize*wordGapRatio &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(r.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(r.S)
		prev = r
	}
	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
