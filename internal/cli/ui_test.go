package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	out := newPrinter(&buf)

	out.success("Rendered %s", "GABC")
	out.failure("Render failed")
	out.info("Cache is empty")
	out.file("GABC.svg")
	out.keyValue("cache", "redis")
	out.nextStep("Explore it interactively", "flowgraph explore GABC")

	text := buf.String()
	for _, want := range []string{
		iconSuccess + " Rendered GABC",
		iconError + " Render failed",
		"Cache is empty",
		iconArrow,
		"GABC.svg",
		"redis",
		"flowgraph explore GABC",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if n := strings.Count(text, "\n"); n != 6 {
		t.Errorf("got %d lines, want 6", n)
	}
}

func TestGraphStats(t *testing.T) {
	tests := []struct {
		accounts, transfers int
		cached              bool
		want                []string
	}{
		{1, 1, false, []string{"1 account", "1 transfer"}},
		{12, 15, true, []string{"12 accounts", "15 transfers", "cached"}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		newPrinter(&buf).graphStats(tt.accounts, tt.transfers, tt.cached)
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w) {
				t.Errorf("graphStats(%d, %d, %v) = %q, missing %q", tt.accounts, tt.transfers, tt.cached, buf.String(), w)
			}
		}
		if !tt.cached && strings.Contains(buf.String(), "cached") {
			t.Errorf("uncached stats mention the cache: %q", buf.String())
		}
	}
}
