package util

import "testing"

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"simple", "one two three", 3},
		{"mixed whitespace", "one\ttwo\n\nthree  four", 4},
		{"markdown", "#### 1.2.3 Title\n\nBody text.", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("Expected %d words, got %d", tt.want, got)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Body text.", "Body text."},
		{"think tags", "<think>reasoning</think>\nBody text.", "Body text."},
		{"preamble", "Sure! Here is the subsection:\nBody text.", "Body text."},
		{"colon without preamble", "Definition:\nBody text.", "Definition:\nBody text."},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Heat Engines", "Heat_Engines"},
		{"What is Entropy?", "What_is_Entropy"},
		{"../../etc/passwd", "etcpasswd"},
		{"  ", "untitled"},
		{"Ökonomie  und  Wärme", "Ökonomie_und_Wärme"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
