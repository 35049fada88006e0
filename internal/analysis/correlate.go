package analysis

import "strings"

// actionKeywords is the fixed vocabulary of interaction verbs used both to
// recognize actions in raw logs and to anchor step matching. Matching is a
// cheap lexical heuristic on purpose: no stemming, no synonyms, no locale
// handling.
var actionKeywords = []string{
	"click", "tap", "press", "select", "enter", "type", "input",
	"open", "close", "navigate", "scroll", "swipe",
	"verify", "check", "assert", "wait", "expect",
}

// ContainsActionKeyword reports whether text mentions any keyword from the
// action vocabulary.
func ContainsActionKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// StepsMatch reports whether an executed action text and an authored step
// text describe the same step. The policy is three symmetric rules, first
// hit wins:
//
//  1. both texts contain the same action keyword and share at least two
//     other tokens,
//  2. one text is a case-insensitive substring of the other,
//  3. the token-overlap ratio (Jaccard over whitespace-split lowercase
//     tokens) is at least 0.40.
func StepsMatch(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	tokensA := tokenSet(la)
	tokensB := tokenSet(lb)

	if kw := sharedActionKeyword(tokensA, tokensB); kw != "" {
		if sharedTokensExcluding(tokensA, tokensB, kw) >= 2 {
			return true
		}
	}

	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}

	return tokenOverlap(tokensA, tokensB) >= 0.40
}

func tokenSet(lower string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(lower) {
		set[tok] = true
	}
	return set
}

// sharedActionKeyword returns the first vocabulary keyword present as a
// token in both sets, or "".
func sharedActionKeyword(a, b map[string]bool) string {
	for _, kw := range actionKeywords {
		if a[kw] && b[kw] {
			return kw
		}
	}
	return ""
}

// sharedTokensExcluding counts tokens common to both sets, ignoring the
// anchor keyword itself.
func sharedTokensExcluding(a, b map[string]bool, exclude string) int {
	n := 0
	for tok := range a {
		if tok != exclude && b[tok] {
			n++
		}
	}
	return n
}

// tokenOverlap computes |a ∩ b| / |a ∪ b|. Empty union yields 0.
func tokenOverlap(a, b map[string]bool) float64 {
	union := len(a)
	inter := 0
	for tok := range b {
		if a[tok] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
