package extract // import "github.com/Xunop/e-oasis-mcp/internal/extract"

type Status string

const (
	StatusExtracted Status = "extracted"
	StatusSkipped   Status = "skipped"
)

// UnitResult is the outcome of extracting one chapter or page.
type UnitResult struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Status Status `json:"status"`
	Text   string `json:"-"`
	Reason string `json:"reason,omitempty"`
}

// Report aggregates per-unit outcomes. A report without any extracted unit
// is a valid, empty result.
type Report struct {
	Units []UnitResult `json:"units"`
}

// UnitFunc extracts the text of unit i.
type UnitFunc func(i int) (string, error)

// Run extracts every unit in order. A failing unit is recorded as skipped
// and extraction carries on with the next one.
func Run(titles []string, extract UnitFunc) *Report {
	r := &Report{Units: make([]UnitResult, 0, len(titles))}
	for i, title := range titles {
		text, err := extract(i)
		if err != nil {
			r.Units = append(r.Units, UnitResult{Index: i, Title: title, Status: StatusSkipped, Reason: err.Error()})
			continue
		}
		r.Units = append(r.Units, UnitResult{Index: i, Title: title, Status: StatusExtracted, Text: text})
	}
	return r
}

func (r *Report) Extracted() []UnitResult {
	var units []UnitResult
	for _, u := range r.Units {
		if u.Status == StatusExtracted {
			units = append(units, u)
		}
	}
	return units
}

func (r *Report) Skipped() []UnitResult {
	var units []UnitResult
	for _, u := range r.Units {
		if u.Status == StatusSkipped {
			units = append(units, u)
		}
	}
	return units
}

// Texts returns the text of every unit, empty for skipped ones, so that
// positions keep matching unit indexes.
func (r *Report) Texts() []string {
	texts := make([]string, len(r.Units))
	for i, u := range r.Units {
		texts[i] = u.Text
	}
	return texts
}

// Dedupe strips shared boilerplate from the extracted units in place.
func (r *Report) Dedupe(cfg DedupConfig) {
	idx := make([]int, 0, len(r.Units))
	texts := make([]string, 0, len(r.Units))
	for i, u := range r.Units {
		if u.Status == StatusExtracted {
			idx = append(idx, i)
			texts = append(texts, u.Text)
		}
	}
	for j, text := range Dedupe(texts, cfg) {
		r.Units[idx[j]].Text = text
	}
}
