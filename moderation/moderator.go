// Package moderation censors configured banned words in message text
// before it reaches the store or any subscriber.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// mapping relates the normalized search text back to rune positions in
// the original input, so censoring preserves spacing and punctuation.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. An empty list yields a pass-through moderator.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (Moderator, error) {
	if len(censoredWords) == 0 {
		return Moderator{censoredChar: censoredChar, log: log}, nil
	}

	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = normalize(word).normalized
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// Censor replaces every occurrence of a banned pattern with the censor
// character, leaving all other characters untouched.
func (m *Moderator) Censor(original string) string {
	if m.matcher == nil {
		return original
	}

	mapped := normalize(original)
	if len(mapped.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(mapped.normalized, false)
	if len(spans) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapped.origIdx) {
			continue
		}
		for i := mapped.origIdx[normStart]; i <= mapped.origIdx[normEnd-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}

	m.log.Debug("censored message content", "patterns_hit", len(spans))
	return string(origRunes)
}

// normalize lowercases the input and strips spacing and punctuation while
// tracking original rune positions.
func normalize(input string) mapping {
	origRunes := []rune(input)
	out := mapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(r))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}
