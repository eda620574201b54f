package object

import "testing"

func TestHash_IsValid(t *testing.T) {
	if !hashA.IsValid() {
		t.Fatal("64 lowercase hex chars should be valid")
	}

	invalid := []Hash{
		"",
		"abc",
		Hash("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		Hash("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"),
		hashA + "00",
	}
	for _, h := range invalid {
		if h.IsValid() {
			t.Errorf("%q should be invalid", h)
		}
	}
}

func TestHash_Short(t *testing.T) {
	if got := hashA.Short(); got != "aaaaaaaa" {
		t.Fatalf("Short = %q, want aaaaaaaa", got)
	}
	if got := Hash("ab").Short(); got != "ab" {
		t.Fatalf("Short of short hash = %q, want ab", got)
	}
}

func TestHashObject_MatchesEnvelope(t *testing.T) {
	payload := []byte("content")
	if HashObject(TypeBlob, payload) != HashBytes(append([]byte("blob 7\x00"), payload...)) {
		t.Fatal("HashObject must hash the type/size envelope, not the raw payload")
	}
}
