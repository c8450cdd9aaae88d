package textdiff

import "testing"

func TestLines(t *testing.T) {
	if got := Lines("a\nb\n", "a\nb\n"); got != "" {
		t.Fatalf("identical inputs should yield no diff, got %q", got)
	}
	got := Lines("a\nb\nc\n", "a\nB\nc\nd\n")
	want := " a\n-b\n+B\n c\n+d\n"
	if got != want {
		t.Fatalf("Lines() =\n%s\nwant\n%s", got, want)
	}
}
