package utils

import "testing"

func TestHasherDeterministic(t *testing.T) {
	h := NewHasher(8)
	if h.Sum("$1,200") != h.Sum("$1,200") {
		t.Error("identical input should hash identically")
	}
	if got := len(h.Sum("$1,200")); got != 8 {
		t.Errorf("hash length: got %d, want 8", got)
	}
	if h.Sum("$1,200") == h.Sum("$1,250") {
		t.Error("different values should produce different hashes")
	}
}

func TestHasherEmpty(t *testing.T) {
	if got := NewHasher(8).Sum(""); got != "" {
		t.Errorf("empty value: got %q, want empty", got)
	}
}

func TestHasherNFCandNFD(t *testing.T) {
	h := NewHasher(8)
	nfc := "caf\u00e9"
	nfd := "cafe\u0301"
	if h.Sum(nfc) != h.Sum(nfd) {
		t.Errorf("NFC and NFD forms should hash the same: %s vs %s", h.Sum(nfc), h.Sum(nfd))
	}
}

func TestHasherLength(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{4, 4},
		{16, 16},
		{64, 64},
		{0, DefaultHashLength},
		{100, DefaultHashLength},
	}
	for _, tt := range tests {
		got := len(NewHasher(tt.length).Sum("notes"))
		if got != tt.want {
			t.Errorf("NewHasher(%d): got length %d, want %d", tt.length, got, tt.want)
		}
	}
}
