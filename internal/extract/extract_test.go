package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func boilerplate(n int) string {
	return strings.Repeat("Copyright notice, all rights reserved by the publisher. ", n)[:n]
}

func uniqueChapter(i int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chapter %d opens here.", i)
	for j := 0; sb.Len() < 2500; j++ {
		fmt.Fprintf(&sb, " story%d-%d", i, j)
	}
	return sb.String()
}

func TestDedupePrefix(t *testing.T) {
	cfg := DefaultDedupConfig()
	preamble := boilerplate(500)

	t.Run("five chapters", func(t *testing.T) {
		var texts, expected []string
		for i := 0; i < 5; i++ {
			texts = append(texts, preamble+uniqueChapter(i))
			expected = append(expected, uniqueChapter(i))
		}
		out := Dedupe(texts, cfg)
		for i := range out {
			if out[i] != expected[i] {
				t.Errorf("chapter %d: got prefix %q", i, out[i][:40])
			}
		}
		if texts[0] != preamble+uniqueChapter(0) {
			t.Error("input was modified")
		}
	})

	t.Run("two chapters", func(t *testing.T) {
		texts := []string{preamble + uniqueChapter(0), preamble + uniqueChapter(1)}
		out := Dedupe(texts, cfg)
		for i := range out {
			if out[i] != texts[i] {
				t.Errorf("chapter %d was deduplicated below the chapter threshold", i)
			}
		}
	})

	t.Run("short repeat is kept", func(t *testing.T) {
		short := boilerplate(150)
		var texts []string
		for i := 0; i < 5; i++ {
			texts = append(texts, short+uniqueChapter(i))
		}
		out := Dedupe(texts, cfg)
		for i := range out {
			if out[i] != texts[i] {
				t.Errorf("chapter %d lost a repeat shorter than the minimum length", i)
			}
		}
	})

	t.Run("minority is kept", func(t *testing.T) {
		texts := []string{
			preamble + uniqueChapter(0),
			preamble + uniqueChapter(1),
			uniqueChapter(2),
			uniqueChapter(3),
			uniqueChapter(4),
		}
		out := Dedupe(texts, cfg)
		if out[0] != texts[0] {
			t.Error("a repeat shared by two of five chapters was stripped")
		}
	})

	t.Run("match too far from the start", func(t *testing.T) {
		var texts []string
		for i := 0; i < 4; i++ {
			texts = append(texts, preamble+uniqueChapter(i))
		}
		late := uniqueChapter(4)[:600] + preamble + uniqueChapter(5)
		texts = append(texts, late)
		out := Dedupe(texts, cfg)
		if out[0] != uniqueChapter(0) {
			t.Errorf("chapter 0 not deduplicated: %q", out[0][:40])
		}
		if out[4] != late {
			t.Error("a repeat past the offset bound was stripped")
		}
	})
}

func cjkBoilerplate(n int) string {
	return string([]rune(strings.Repeat("版权所有未经许可不得转载本书由出版社发行", n))[:n])
}

func TestDedupeCountsCharacters(t *testing.T) {
	cfg := DefaultDedupConfig()

	t.Run("short repeat is kept", func(t *testing.T) {
		preamble := cjkBoilerplate(120)
		var texts []string
		for i := 0; i < 5; i++ {
			texts = append(texts, preamble+uniqueChapter(i))
		}
		out := Dedupe(texts, cfg)
		for i := range out {
			if out[i] != texts[i] {
				t.Errorf("chapter %d lost a 120 character repeat", i)
			}
		}
	})

	t.Run("long repeat is stripped", func(t *testing.T) {
		preamble := cjkBoilerplate(700)
		var texts []string
		for i := 0; i < 5; i++ {
			texts = append(texts, preamble+uniqueChapter(i))
		}
		out := Dedupe(texts, cfg)
		for i := range out {
			if out[i] != uniqueChapter(i) {
				t.Errorf("chapter %d: preamble not stripped", i)
			}
		}
	})
}

func TestDedupeSuffix(t *testing.T) {
	footer := " " + boilerplate(300)
	var texts []string
	for i := 0; i < 4; i++ {
		texts = append(texts, uniqueChapter(i)+footer)
	}
	out := Dedupe(texts, DefaultDedupConfig())
	for i := range out {
		if out[i] != uniqueChapter(i) {
			t.Errorf("chapter %d: footer not stripped, tail %q", i, out[i][len(out[i])-40:])
		}
	}
}

func TestReport(t *testing.T) {
	titles := []string{"one", "two", "three"}
	r := Run(titles, func(i int) (string, error) {
		if i == 1 {
			return "", errors.New("broken markup")
		}
		return fmt.Sprintf("text %d", i), nil
	})
	if len(r.Units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(r.Units))
	}
	if len(r.Extracted()) != 2 || len(r.Skipped()) != 1 {
		t.Errorf("unexpected split: %+v", r.Units)
	}
	skipped := r.Skipped()[0]
	if skipped.Index != 1 || skipped.Reason != "broken markup" {
		t.Errorf("unexpected skipped unit: %+v", skipped)
	}
	if texts := r.Texts(); texts[1] != "" || texts[2] != "text 2" {
		t.Errorf("unexpected texts: %q", texts)
	}

	empty := Run(nil, nil)
	if len(empty.Units) != 0 || len(empty.Extracted()) != 0 {
		t.Error("an empty book must produce an empty report")
	}
}
