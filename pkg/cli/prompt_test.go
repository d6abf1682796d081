package cli

import (
	"bytes"
	"strings"
	"testing"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(strings.NewReader(input), out), out
}

func TestAsk(t *testing.T) {
	p, _ := newTestPrompter("hello\n")
	if got := p.Ask("Name", "default"); got != "hello" {
		t.Errorf("Ask() = %q, want %q", got, "hello")
	}
}

func TestAskEmptyUsesDefault(t *testing.T) {
	p, _ := newTestPrompter("\n")
	if got := p.Ask("Name", "fallback"); got != "fallback" {
		t.Errorf("Ask() = %q, want %q", got, "fallback")
	}
}

func TestAskWhitespaceUsesDefault(t *testing.T) {
	p, _ := newTestPrompter("   \n")
	if got := p.Ask("Name", "fallback"); got != "fallback" {
		t.Errorf("Ask() = %q, want %q", got, "fallback")
	}
}

func TestAskPasswordFallback(t *testing.T) {
	// Not a real terminal, so it falls back to plain read.
	p, _ := newTestPrompter("secret123\n")
	if got := p.AskPassword("Password"); got != "secret123" {
		t.Errorf("AskPassword() = %q, want %q", got, "secret123")
	}
}

func TestSelect(t *testing.T) {
	p, _ := newTestPrompter("2\n")
	options := []string{"sqlite", "postgres"}
	if got := p.Select("Driver", options, 0); got != "postgres" {
		t.Errorf("Select() = %q, want %q", got, "postgres")
	}
}

func TestSelectDefaultOnEmpty(t *testing.T) {
	p, _ := newTestPrompter("\n")
	options := []string{"sqlite", "postgres"}
	if got := p.Select("Driver", options, 1); got != "postgres" {
		t.Errorf("Select() = %q, want %q", got, "postgres")
	}
}

func TestSelectRepromptsOnInvalid(t *testing.T) {
	p, out := newTestPrompter("9\n1\n")
	options := []string{"sqlite", "postgres"}
	if got := p.Select("Driver", options, 0); got != "sqlite" {
		t.Errorf("Select() = %q, want %q", got, "sqlite")
	}
	if !strings.Contains(out.String(), "between 1 and 2") {
		t.Error("expected an invalid-choice hint to be printed")
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
	}
	for _, tc := range cases {
		p, _ := newTestPrompter(tc.input)
		if got := p.Confirm("Continue?", tc.defaultYes); got != tc.want {
			t.Errorf("Confirm(%q, default=%v) = %v, want %v", tc.input, tc.defaultYes, got, tc.want)
		}
	}
}
