package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestMatch(t *testing.T) {
	data := []byte("abc")
	sum := Sum(data)
	tests := []struct {
		tag  string
		want bool
	}{
		{sum, true},
		{`"` + sum + `"`, true},
		{`W/"` + sum + `"`, true},
		{"BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD", true},
		{"stale", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Match(data, tt.tag); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}
