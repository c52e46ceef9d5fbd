package embedding

import "unicode"

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask,
// token_type_ids) padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordTokenizer splits on whitespace and punctuation and maps each token to a
// hash-bucketed id. It is not a real WordPiece vocabulary, which costs some
// embedding quality, but it keeps the local path dependency-free and is
// deterministic for caching.
type WordTokenizer struct{}

const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30000
)

// Tokenize produces padded token ids for text, truncating past maxTokens.
func (t *WordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range splitTokens(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashToken(word) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// splitTokens lower-cases text and splits into word and punctuation tokens.
func splitTokens(text string) []string {
	var tokens []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word = append(word, unicode.ToLower(r))
		}
	}
	flush()
	return tokens
}

// hashToken returns a deterministic non-negative hash for a token.
func hashToken(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
