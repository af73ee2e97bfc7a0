package idhash

import (
	"testing"
)

func TestComputeSwapID(t *testing.T) {
	tests := []struct {
		name       string
		signature  string
		eventIndex int
	}{
		{name: "first pair", signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb", eventIndex: 0},
		{name: "second pair", signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb", eventIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSwapID(tt.signature, tt.eventIndex)
			if len(got) != 64 {
				t.Errorf("ComputeSwapID() length = %d, want 64", len(got))
			}
			if again := ComputeSwapID(tt.signature, tt.eventIndex); again != got {
				t.Errorf("ComputeSwapID() not deterministic: %s vs %s", got, again)
			}
		})
	}
}

func TestComputeSwapID_DistinctInputs(t *testing.T) {
	a := ComputeSwapID("sig", 0)
	b := ComputeSwapID("sig", 1)
	c := ComputeSwapID("sig2", 0)
	if a == b || a == c || b == c {
		t.Errorf("expected distinct ids, got %s %s %s", a, b, c)
	}
}

func TestComputeSwapID_KnownValue(t *testing.T) {
	got := ComputeSwapID("abc", 0)
	want := "faca77149ea2e74b344754d9b33f267279e66e2ab72fc3ba1ce87ed11f22aa20"
	if got != want {
		t.Errorf("ComputeSwapID(abc, 0) = %s, want %s", got, want)
	}
}
