// Package namematch decides whether a document-extracted name and a
// reservation-supplied name refer to the same person. It tolerates name-order
// conventions (legacy "last first middle" layouts, comma-separated forms) and
// the character confusions optical extraction produces. Pure functions, no
// external calls.
package namematch

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/driveon/idverify/internal/core/domain"
)

// SimilarityThreshold is the minimum normalized edit similarity both outer
// token pairs must reach for a fuzzy match. Fixed pending a policy decision
// on per-deployment configurability.
const SimilarityThreshold = 0.85

var generationalSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
}

// Compare runs the strategy cascade against both names. The first strategy
// that succeeds wins; a non-match carries a diagnostic enumerating both token
// lists so a reviewer can see why.
func Compare(documentName, bookingName string) domain.NameComparisonResult {
	docTokens := tokenize(documentName)
	bookTokens := tokenize(bookingName)

	result := domain.NameComparisonResult{}
	result.DocumentFirst, result.DocumentMiddle, result.DocumentLast = Parse(documentName)
	result.BookingFirst, result.BookingMiddle, result.BookingLast = Parse(bookingName)

	if len(docTokens) == 0 || len(bookTokens) == 0 {
		result.Mismatch = fmt.Sprintf("empty name after normalization: document tokens %v, booking tokens %v", docTokens, bookTokens)
		return result
	}

	if matchCascade(documentName, docTokens, bookTokens) {
		result.Match = true
		return result
	}

	result.Mismatch = fmt.Sprintf("no strategy matched: document tokens %v vs booking tokens %v", docTokens, bookTokens)
	return result
}

func matchCascade(rawDocument string, doc, book []string) bool {
	// 1. Exact match after normalization.
	if strings.Join(doc, " ") == strings.Join(book, " ") {
		return true
	}

	// 2. Natural order: first and last tokens agree, middles ignored.
	if outerMatch(doc, book) {
		return true
	}

	// 3. Legacy order: document laid out as "last first [middle]".
	if len(doc) >= 2 && doc[1] == book[0] && doc[0] == book[len(book)-1] {
		return true
	}

	// 4. Comma-separated "Last, First Middle" re-evaluated as natural order.
	if before, after, found := strings.Cut(rawDocument, ","); found {
		reordered := append(tokenize(after), tokenize(before)...)
		if len(reordered) > 0 && outerMatch(reordered, book) {
			return true
		}
	}

	// Generational suffixes never decide the remaining strategies.
	doc = stripSuffixes(doc)
	book = stripSuffixes(book)
	if len(doc) == 0 || len(book) == 0 {
		return false
	}

	// 5. Middle-tolerant, either direction, when the document carries extra tokens.
	if len(doc) > len(book) {
		if outerMatch(doc, book) {
			return true
		}
		if doc[0] == book[len(book)-1] && doc[len(doc)-1] == book[0] {
			return true
		}
	}

	// 6. Subset containment: every booking token appears on the document.
	if len(book) >= 2 && containsAll(doc, book) {
		return true
	}

	// 7. Fuzzy similarity on the outer token pairs, both orientations.
	docFirst, docLast := doc[0], doc[len(doc)-1]
	bookFirst, bookLast := book[0], book[len(book)-1]
	if Similarity(docFirst, bookFirst) >= SimilarityThreshold && Similarity(docLast, bookLast) >= SimilarityThreshold {
		return true
	}
	if Similarity(docFirst, bookLast) >= SimilarityThreshold && Similarity(docLast, bookFirst) >= SimilarityThreshold {
		return true
	}

	return false
}

func outerMatch(doc, book []string) bool {
	return doc[0] == book[0] && doc[len(doc)-1] == book[len(book)-1]
}

func containsAll(haystack, needles []string) bool {
	present := make(map[string]bool, len(haystack))
	for _, token := range haystack {
		present[token] = true
	}
	for _, token := range needles {
		if !present[token] {
			return false
		}
	}
	return true
}

// Parse splits a full name into first, middle, and last parts assuming
// natural order, folding a "Last, First Middle" layout back into natural
// order first. Middle may span several tokens.
func Parse(full string) (first, middle, last string) {
	raw := full
	if before, after, found := strings.Cut(raw, ","); found {
		raw = after + " " + before
	}
	words := fieldsPreservingCase(raw)
	switch len(words) {
	case 0:
		return "", "", ""
	case 1:
		return words[0], "", ""
	case 2:
		return words[0], "", words[1]
	default:
		return words[0], strings.Join(words[1:len(words)-1], " "), words[len(words)-1]
	}
}

func stripSuffixes(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if generationalSuffixes[token] {
			continue
		}
		out = append(out, token)
	}
	return out
}

// tokenize lowercases, strips everything but letters, and collapses
// whitespace into a token list.
func tokenize(name string) []string {
	return strings.Fields(lettersOnly(strings.ToLower(name)))
}

func fieldsPreservingCase(name string) []string {
	return strings.Fields(lettersOnly(name))
}

func lettersOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}
