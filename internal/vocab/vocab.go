// Package vocab builds the frequency-ordered word vocabulary and encodes
// token lists into vocabulary ids.
//
// Id 0 is reserved for padding and is never assigned to a token, so a valid
// vocabulary of N tokens uses exactly the ids 1..N.
package vocab

import (
	"errors"
	"fmt"
	"slices"
)

// PadID is the padding sentinel. No token ever maps to it.
const PadID = 0

var (
	// ErrEmptyToken is returned when a token list contains an empty string.
	ErrEmptyToken = errors.New("vocab: empty token")
	// ErrUnknownToken is matched by every *UnknownTokenError.
	ErrUnknownToken = errors.New("vocab: unknown token")
)

// UnknownTokenError reports a token that is not part of a fixed vocabulary.
type UnknownTokenError struct {
	Token    string
	Position int
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("vocab: unknown token %q at position %d", e.Token, e.Position)
}

// Is makes errors.Is(err, ErrUnknownToken) true for any UnknownTokenError.
func (e *UnknownTokenError) Is(target error) bool {
	return target == ErrUnknownToken
}

// Vocabulary maps tokens to dense ids ordered by descending corpus frequency.
// It is immutable once built and safe for concurrent use.
type Vocabulary struct {
	tokens []string // tokens[id-1]
	counts []int    // counts[id-1]
	ids    map[string]int
}

// Build counts tokens across all reviews and assigns ids 1..N by descending
// count. Tokens with equal counts keep the order in which they were first seen.
func Build(reviews [][]string) (*Vocabulary, error) {
	counts := make(map[string]int)
	var order []string

	for r, review := range reviews {
		for p, tok := range review {
			if tok == "" {
				return nil, fmt.Errorf("%w in review %d at position %d", ErrEmptyToken, r, p)
			}
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	// Stable sort keeps first-seen order among ties.
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	freq := make([]int, len(order))
	for i, tok := range order {
		freq[i] = counts[tok]
	}

	return newVocabulary(order, freq)
}

// newVocabulary indexes an id-ordered token list.
func newVocabulary(tokens []string, counts []int) (*Vocabulary, error) {
	if len(counts) != len(tokens) {
		return nil, fmt.Errorf("vocab: %d tokens but %d counts", len(tokens), len(counts))
	}

	ids := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if tok == "" {
			return nil, fmt.Errorf("%w at id %d", ErrEmptyToken, i+1)
		}
		if prev, dup := ids[tok]; dup {
			return nil, fmt.Errorf("vocab: duplicate token %q at ids %d and %d", tok, prev, i+1)
		}
		ids[tok] = i + 1
	}

	return &Vocabulary{
		tokens: tokens,
		counts: counts,
		ids:    ids,
	}, nil
}

// ID returns the id of tok.
func (v *Vocabulary) ID(tok string) (int, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// Token returns the token with the given id. PadID and out-of-range ids are not found.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 1 || id > len(v.tokens) {
		return "", false
	}
	return v.tokens[id-1], true
}

// Count returns how often tok occurred in the corpus the vocabulary was built from.
func (v *Vocabulary) Count(tok string) int {
	id, ok := v.ids[tok]
	if !ok {
		return 0
	}
	return v.counts[id-1]
}

// Len returns the number of distinct tokens.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Size returns Len()+1: the number of rows an embedding table needs to cover
// every id including PadID.
func (v *Vocabulary) Size() int { return len(v.tokens) + 1 }

// Tokens returns the tokens ordered by id.
func (v *Vocabulary) Tokens() []string {
	return slices.Clone(v.tokens)
}

// Encode maps tokens to ids in order. The first token missing from the
// vocabulary aborts encoding with an *UnknownTokenError; no partial result is
// returned. An empty token list encodes to an empty, non-nil slice.
func (v *Vocabulary) Encode(tokens []string) ([]int, error) {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := v.ids[tok]
		if !ok {
			return nil, &UnknownTokenError{Token: tok, Position: i}
		}
		out[i] = id
	}

	return out, nil
}
