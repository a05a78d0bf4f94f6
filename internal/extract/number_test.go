package extract

import "testing"

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
		none  bool
	}{
		{"surface", "45 m²", 45, false},
		{"surface with nbsp", "45 m²", 45, false},
		{"price with grouping", "350 000 €", 350000, false},
		{"price with nbsp grouping", "350 000 €", 350000, false},
		{"bare number", "3", 3, false},
		{"no digits", "no digits here", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNumber(tt.input)
			if tt.none {
				if got != nil {
					t.Errorf("ExtractNumber(%q) = %d, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractNumber(%q) = nil, want %d", tt.input, tt.want)
			}
			if *got != tt.want {
				t.Errorf("ExtractNumber(%q) = %d, want %d", tt.input, *got, tt.want)
			}
		})
	}
}
