package extract

import (
	"strings"
	"unicode/utf8"
)

// DedupConfig holds the boilerplate detection thresholds, in characters of
// extracted text.
type DedupConfig struct {
	// PrefixWindow and SuffixWindow bound the candidate taken from the
	// start and the end of each chapter.
	PrefixWindow int
	SuffixWindow int
	// Tested windows shrink by Step down to MinWindow.
	MinWindow int
	Step      int
	// A match shorter than or equal to MinLength is never stripped.
	MinLength int
	// MaxOffset is how far from the chapter start (or end) a match may sit.
	MaxOffset int
	// Quorum is the fraction of chapters that must share the match.
	Quorum float64
	// MinChapters is the smallest book the pass runs on.
	MinChapters int
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		PrefixWindow: 2000,
		SuffixWindow: 1500,
		MinWindow:    100,
		Step:         50,
		MinLength:    200,
		MaxOffset:    500,
		Quorum:       0.5,
		MinChapters:  3,
	}
}

// Dedupe strips a prefix and a suffix repeated across most chapters. The
// input slice is not modified.
func Dedupe(texts []string, cfg DedupConfig) []string {
	out := append([]string(nil), texts...)
	if len(out) < cfg.MinChapters || len(out) == 0 {
		return out
	}
	if cfg.Step <= 0 {
		cfg.Step = 1
	}

	heads := make([]string, len(out))
	for i, text := range out {
		heads[i] = headRunes(text, cfg.PrefixWindow)
	}
	if match := findPrefix(heads, cfg); match != "" {
		for i, text := range out {
			if idx, ok := prefixOffset(heads[i], match, cfg.MaxOffset); ok {
				out[i] = strings.TrimSpace(text[:idx] + text[idx+len(match):])
			}
		}
	}

	tails := make([]string, len(out))
	for i, text := range out {
		tails[i] = tailRunes(text, cfg.SuffixWindow)
	}
	if match := findSuffix(tails, cfg); match != "" {
		for i, text := range out {
			if idx, ok := suffixOffset(tails[i], match, cfg.MaxOffset); ok {
				pos := len(text) - len(tails[i]) + idx
				out[i] = strings.TrimSpace(text[:pos] + text[pos+len(match):])
			}
		}
	}
	return out
}

// findPrefix returns the longest window of chapter 0's head, tested on
// multiples of the step, that starts within MaxOffset of the head of at
// least a quorum of chapters.
func findPrefix(heads []string, cfg DedupConfig) string {
	base := []rune(heads[0])
	for w := (len(base) / cfg.Step) * cfg.Step; w >= cfg.MinWindow; w -= cfg.Step {
		if w <= cfg.MinLength {
			return ""
		}
		candidate := string(base[:w])
		count := 0
		for _, head := range heads {
			if _, ok := prefixOffset(head, candidate, cfg.MaxOffset); ok {
				count++
			}
		}
		if quorum(count, len(heads), cfg.Quorum) {
			return candidate
		}
	}
	return ""
}

// findSuffix mirrors findPrefix on the tail of each chapter.
func findSuffix(tails []string, cfg DedupConfig) string {
	base := []rune(tails[0])
	for w := (len(base) / cfg.Step) * cfg.Step; w >= cfg.MinWindow; w -= cfg.Step {
		if w <= cfg.MinLength {
			return ""
		}
		candidate := string(base[len(base)-w:])
		count := 0
		for _, tail := range tails {
			if _, ok := suffixOffset(tail, candidate, cfg.MaxOffset); ok {
				count++
			}
		}
		if quorum(count, len(tails), cfg.Quorum) {
			return candidate
		}
	}
	return ""
}

// prefixOffset returns the byte index of match in head when at most
// maxOffset characters precede it.
func prefixOffset(head, match string, maxOffset int) (int, bool) {
	idx := strings.Index(head, match)
	if idx < 0 || utf8.RuneCountInString(head[:idx]) > maxOffset {
		return 0, false
	}
	return idx, true
}

// suffixOffset returns the byte index of the last match in tail when at most
// maxOffset characters follow it.
func suffixOffset(tail, match string, maxOffset int) (int, bool) {
	idx := strings.LastIndex(tail, match)
	if idx < 0 || utf8.RuneCountInString(tail[idx+len(match):]) > maxOffset {
		return 0, false
	}
	return idx, true
}

// headRunes returns the first n characters of s.
func headRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// tailRunes returns the last n characters of s.
func tailRunes(s string, n int) string {
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

func quorum(count, n int, fraction float64) bool {
	return float64(count) >= fraction*float64(n)
}
