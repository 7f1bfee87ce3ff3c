package research

import (
	"reflect"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `[{"id":0,"score":0.9}]`, `[{"id":0,"score":0.9}]`},
		{"json fence", "```json\n[{\"id\":0}]\n```", `[{"id":0}]`},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"uppercase fence", "```JSON\n{}\n```", "{}"},
		{"surrounding whitespace", "  ```json\n[]\n```  ", "[]"},
		{"fence only at edges", "a ``` b", "a ``` b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.input); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePlanSteps(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "numbered",
			output: "1. AI medical diagnosis accuracy studies\n2. AI healthcare implementation challenges\n3. Future AI healthcare applications",
			want: []string{
				"AI medical diagnosis accuracy studies",
				"AI healthcare implementation challenges",
				"Future AI healthcare applications",
			},
		},
		{
			name:   "bullets and dashes",
			output: "- first query\n• second query",
			want:   []string{"first query", "second query"},
		},
		{
			name:   "prose around numbered lines is dropped",
			output: "Here is your plan:\n1. real query\nHope this helps!",
			want:   []string{"real query"},
		},
		{
			name:   "numbered with parenthesis",
			output: "1) query one\n2) query two",
			want:   []string{"query one", "query two"},
		},
		{
			name:   "capped at four",
			output: "1. a\n2. b\n3. c\n4. d\n5. e\n6. f",
			want:   []string{"a", "b", "c", "d"},
		},
		{
			name:   "no structure falls back to non-blank lines",
			output: "search for qubit hardware\n\nsearch for error correction",
			want:   []string{"search for qubit hardware", "search for error correction"},
		},
		{
			name:   "empty marker lines are skipped",
			output: "1.\n2. real query",
			want:   []string{"real query"},
		},
		{
			name:   "blank output",
			output: "\n  \n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePlanSteps(tt.output, maxPlanSteps)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePlanSteps() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoerceID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"number", float64(3), 3, true},
		{"truncated float", float64(3.7), 3, true},
		{"string", "2", 2, true},
		{"padded string", " 4 ", 4, true},
		{"float string rejected", "3.7", 0, false},
		{"garbage", "three", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceID(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("coerceID(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"number", float64(0.8), 0.8, true},
		{"string", "0.75", 0.75, true},
		{"padded string", " 0.5 ", 0.5, true},
		{"garbage", "high", 0, false},
		{"nil", nil, 0, false},
		{"object", map[string]any{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceScore(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("coerceScore(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{7.5, 1},
	}

	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"short unchanged", "abc", 10, "abc"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 3, "abc"},
		{"multibyte safe", "héllo wörld", 5, "héllo"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.s, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}
