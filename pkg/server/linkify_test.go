package server

import "testing"

func TestLinkify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "no urls",
			in:   "plain prose without links",
			want: "plain prose without links",
		},
		{
			name: "https url",
			in:   "see https://example.com/a for details",
			want: "see [https://example.com/a](https://example.com/a) for details",
		},
		{
			name: "http url",
			in:   "http://example.com/a",
			want: "[http://example.com/a](http://example.com/a)",
		},
		{
			name: "bare domain with path gets scheme",
			in:   "read example.com/page today",
			want: "read [example.com/page](https://example.com/page) today",
		},
		{
			name: "www domain with path",
			in:   "www.example.com/x",
			want: "[www.example.com/x](https://www.example.com/x)",
		},
		{
			name: "bare domain without path untouched",
			in:   "just example.com here",
			want: "just example.com here",
		},
		{
			name: "closing paren excluded",
			in:   "(https://example.com/a)",
			want: "([https://example.com/a](https://example.com/a))",
		},
		{
			name: "closing bracket excluded",
			in:   "[https://example.com/a]",
			want: "[[https://example.com/a](https://example.com/a)]",
		},
		{
			name: "multiple urls",
			in:   "https://a.example/1 and https://b.example/2",
			want: "[https://a.example/1](https://a.example/1) and [https://b.example/2](https://b.example/2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := linkify(tt.in); got != tt.want {
				t.Errorf("linkify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateTopic(t *testing.T) {
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{"ok", "Quantum computing", ""},
		{"exactly three chars", "abc", ""},
		{"empty", "", "Topic must be at least 3 characters long"},
		{"whitespace only", "   ", "Topic must be at least 3 characters long"},
		{"too short after trim", " ab ", "Topic must be at least 3 characters long"},
		{"too long", string(long), "Topic must be less than 500 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateTopic(tt.topic); got != tt.want {
				t.Errorf("validateTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
