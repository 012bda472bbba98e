// Package slug derives URL-safe deck identifiers from titles.
//
// A slug is assigned exactly once, at deck creation, and never changes —
// study links shared with students must survive any later renaming of the
// deck. Uniqueness is global across all teachers.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// maxBaseLength caps the slugified title before any numeric suffix.
// Matches the database column limit with room for "-NNN".
const maxBaseLength = 240

// Make deterministically slugifies a title: lowercase ASCII letters and
// digits, with runs of anything else collapsed to single hyphens.
//
//	"Algebra"          → "algebra"
//	"GCSE Maths: Set 1" → "gcse-maths-set-1"
//	"  ¡Hola!  "        → "hola"
//
// A title with no usable characters at all slugifies to "deck" so the
// result is never empty.
func Make(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Non-ASCII letters are dropped rather than transliterated.
			// Keeping the function dependency-free beats a lossy
			// best-effort romanization.
			continue
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxBaseLength {
		s = strings.TrimRight(s[:maxBaseLength], "-")
	}
	if s == "" {
		return "deck"
	}
	return s
}

// ExistsFunc reports whether a candidate slug is already taken.
// The repository binds this to a query on the same transaction that will
// perform the insert, so each attempt re-checks live state.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns the first free slug derived from title: the base slug
// itself, then "base-1", "base-2", … incrementing until exists reports
// false.
//
// CONCURRENT CREATIONS:
// Two requests can slugify the same title at the same moment and both see
// the base as free. The loop is therefore only a best-effort fast path —
// the UNIQUE index on decks.slug is the final authority, and the caller
// treats a constraint violation on insert as the fallback failure path.
// That is also why exists is called fresh on every attempt instead of the
// candidates being precomputed.
func Unique(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Make(title)

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug: checking %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
