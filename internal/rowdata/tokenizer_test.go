package rowdata

import (
	"testing"
)

// absent marks an absent slot in expected token lists.
const absent = "<absent>"

func tokens(r row) []string {
	out := make([]string, len(r.vals))
	for i := range r.vals {
		if r.present[i] {
			out[i] = r.vals[i]
		} else {
			out[i] = absent
		}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim string
		cols  int
		want  []string
	}{
		{"all present", "a,b,c", ",", 3, []string{"a", "b", "c"}},
		{"double delimiter is absent", "a,,c", ",", 3, []string{"a", absent, "c"}},
		{"leading delimiter", ",b,c", ",", 3, []string{absent, "b", "c"}},
		{"trailing delimiter", "a,b,", ",", 3, []string{"a", "b", absent}},
		{"short line", "a", ",", 3, []string{"a", absent, absent}},
		{"empty line", "", ",", 2, []string{absent, absent}},
		{"only delimiters", ",,", ",", 3, []string{absent, absent, absent}},
		{"many delimiters", "a,,,d", ",", 4, []string{"a", absent, absent, "d"}},
		{"whitespace only is absent", "a, ,c", ",", 3, []string{"a", absent, "c"}},
		{"value kept untrimmed", " a ,b", ",", 2, []string{" a ", "b"}},
		{"extra fields ignored", "a,b,c,d", ",", 3, []string{"a", "b", "c"}},
		{"single column keeps rest", "a,b", ",", 1, []string{"a"}},
		{"tab delimiter", "1\t\t3", "\t", 3, []string{"1", absent, "3"}},
		{"multi-character delimiter", "a||||c", "||", 3, []string{"a", absent, "c"}},
		{"partial multi-character delimiter", "a|b||c", "||", 2, []string{"a|b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRow(tt.cols)
			r.tokenize(tt.line, tt.delim)
			got := tokens(r)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_OverwritesPreviousLine(t *testing.T) {
	r := newRow(3)
	r.tokenize("a,b,c", ",")
	r.tokenize("x", ",")

	got := tokens(r)
	want := []string{"x", absent, absent}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d = %q, want %q", i, got[i], want[i])
		}
	}
}
