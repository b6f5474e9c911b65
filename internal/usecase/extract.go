package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

// Extraction strategies, tried in order; the first one that yields at least
// one match wins. Letters are the four choice labels A-D.
var (
	reNumbered = regexp.MustCompile(`(?i)(\d{1,2})\s*[\)\.\-:]\s*([A-D])\b`)
	reLabeled  = regexp.MustCompile(`(?i)answer\s*[:\-]?\s*([A-D])\b`)
	reBare     = regexp.MustCompile(`(?i)\b([A-D])\)`)
)

const (
	maxAnswers      = 15
	fallbackPreview = 200
)

// ExtractCompactAnswer reduces free-form inference text to a compact
// "n:LETTER" list. It is pure: no I/O, deterministic for a given input.
//
// Strategy 1 pairs explicit question numbers with letters. Each letter is
// kept once, attached to the question it was first seen with; a later
// pairing of the same letter neither repeats nor overwrites it. Strategies
// 2 and 3 collect bare letters and number them sequentially. When nothing
// matches, the first 200 characters of the raw text are returned, with an
// ellipsis if truncated.
func ExtractCompactAnswer(text string) string {
	if m := reNumbered.FindAllStringSubmatch(text, -1); len(m) > 0 {
		seen := make(map[string]struct{}, len(m))
		answers := make([]string, 0, len(m))
		for _, g := range m {
			letter := strings.ToUpper(g[2])
			if _, dup := seen[letter]; dup {
				continue
			}
			seen[letter] = struct{}{}
			answers = append(answers, g[1]+":"+letter)
			if len(answers) == maxAnswers {
				break
			}
		}
		return strings.Join(answers, " ")
	}

	if m := reLabeled.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return numberSequentially(m)
	}
	if m := reBare.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return numberSequentially(m)
	}

	runes := []rune(text)
	if len(runes) > fallbackPreview {
		return string(runes[:fallbackPreview]) + "..."
	}
	return text
}

func numberSequentially(matches [][]string) string {
	seen := make(map[string]struct{}, len(matches))
	answers := make([]string, 0, len(matches))
	for _, g := range matches {
		letter := strings.ToUpper(g[1])
		if _, dup := seen[letter]; dup {
			continue
		}
		seen[letter] = struct{}{}
		answers = append(answers, fmt.Sprintf("%d:%s", len(answers)+1, letter))
		if len(answers) == maxAnswers {
			break
		}
	}
	return strings.Join(answers, " ")
}
