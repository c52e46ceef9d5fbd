package embedding

import (
	"reflect"
	"testing"
)

func TestTokenizePadding(t *testing.T) {
	tok := &WordTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("chest pain", 8)

	if len(inputIDs) != 8 || len(attentionMask) != 8 || len(tokenTypeIDs) != 8 {
		t.Fatalf("outputs not padded to maxTokens: %d %d %d", len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != clsTokenID {
		t.Fatalf("first token = %d, want CLS", inputIDs[0])
	}
	// cls + 2 words + sep
	if inputIDs[3] != sepTokenID {
		t.Fatalf("token after words = %d, want SEP", inputIDs[3])
	}
	wantMask := []int64{1, 1, 1, 1, 0, 0, 0, 0}
	if !reflect.DeepEqual(attentionMask, wantMask) {
		t.Fatalf("attention mask = %v, want %v", attentionMask, wantMask)
	}
	for _, id := range inputIDs {
		if id < 0 || id >= vocabSize {
			t.Fatalf("token id %d out of vocab range", id)
		}
	}
}

func TestTokenizeTruncates(t *testing.T) {
	tok := &WordTokenizer{}
	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	inputIDs, attentionMask, _ := tok.Tokenize(long, 16)
	if len(inputIDs) != 16 {
		t.Fatalf("len = %d, want 16", len(inputIDs))
	}
	for _, m := range attentionMask {
		if m != 1 {
			t.Fatal("every slot should be attended when input overflows")
		}
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := &WordTokenizer{}
	a, _, _ := tok.Tokenize("Aspirin dosage for adults", 32)
	b, _, _ := tok.Tokenize("Aspirin dosage for adults", 32)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("tokenization must be deterministic")
	}
}

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Chest Pain", []string{"chest", "pain"}},
		{"punctuation separates", "fever, chills", []string{"fever", ",", "chills"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTokens(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("splitTokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
