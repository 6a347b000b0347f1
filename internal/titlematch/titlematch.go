// Package titlematch resolves free-text titles against candidate pools.
// Matching tries an exact normalized comparison first and falls back to
// Dice bigram similarity above a cutoff. It is used only when no external
// catalog id is available to match on.
package titlematch

import "strings"

// DefaultCutoff is the minimum Dice similarity accepted by Resolve.
// Hand-tuned constant; kept as-is rather than re-derived.
const DefaultCutoff = 0.7

// Candidate pairs an opaque id with a display title.
type Candidate struct {
	ID    int64
	Title string
}

// Normalize lowercases a title and strips every character that is not an
// ASCII letter or digit. Spacing and punctuation differences never affect
// matching: "The  Matrix" and "the matrix!" normalize identically.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// DiceCoefficient returns the bigram similarity of two strings in [0, 1].
// Identical strings score 1; if either string is shorter than two
// characters the score is 0. Bigrams are counted as multisets.
func DiceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	counts := make(map[string]int, len(a)-1)
	for i := 0; i+2 <= len(a); i++ {
		counts[a[i:i+2]]++
	}

	intersection := 0
	for i := 0; i+2 <= len(b); i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			intersection++
		}
	}

	return 2 * float64(intersection) / float64(len(a)-1+len(b)-1)
}

// Resolve returns the best match for query among candidates, or nil when
// nothing matches. An exact normalized match wins outright; otherwise the
// highest Dice score at or above cutoff wins. Ties keep the first-seen
// candidate, so callers should pass candidates in a deterministic order.
func Resolve(query string, candidates []Candidate, cutoff float64) *Candidate {
	nq := Normalize(query)
	if nq == "" {
		return nil
	}

	for i := range candidates {
		if Normalize(candidates[i].Title) == nq {
			return &candidates[i]
		}
	}

	bestIdx := -1
	bestScore := 0.0
	for i := range candidates {
		score := DiceCoefficient(nq, Normalize(candidates[i].Title))
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestScore >= cutoff {
		return &candidates[bestIdx]
	}
	return nil
}
