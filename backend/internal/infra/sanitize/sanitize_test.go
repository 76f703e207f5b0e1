package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeRemovesScripts(t *testing.T) {
	s := NewHTMLSanitizer()

	out := s.Sanitize(`<p onclick="x()">Pump <b>2</b> leaking<script>alert(1)</script></p><img src=x onerror=alert(1)>`)
	if strings.Contains(out, "script") || strings.Contains(out, "onclick") || strings.Contains(out, "img") {
		t.Fatalf("unsafe markup survived: %s", out)
	}
	if !strings.Contains(out, "<b>2</b>") {
		t.Fatalf("allowed markup was removed: %s", out)
	}
}

func TestSanitizeFiltersLinks(t *testing.T) {
	s := NewHTMLSanitizer()

	bad := s.Sanitize(`<a href="javascript:alert(1)">x</a>`)
	if strings.Contains(bad, "javascript") {
		t.Fatalf("javascript url survived: %s", bad)
	}
	good := s.Sanitize(`<a href="https://wiki.example.com/runbook" target="_blank">runbook</a>`)
	if !strings.Contains(good, `href="https://wiki.example.com/runbook"`) {
		t.Fatalf("https link removed: %s", good)
	}
}

func TestVisibleLength(t *testing.T) {
	s := NewHTMLSanitizer()

	if n := s.VisibleLength("<p><br></p>"); n != 0 {
		t.Fatalf("expected markup-only note to be empty, got %d", n)
	}
	if n := s.VisibleLength("<p>a &amp; b</p>"); n != 5 {
		t.Fatalf("expected 5 visible chars, got %d", n)
	}
	if n := s.VisibleLength("<b>Übergabe</b>"); n != 8 {
		t.Fatalf("expected rune count 8, got %d", n)
	}
}

func TestStripAngles(t *testing.T) {
	if got := StripAngles("<b>Valve</b> 3 > 2"); got != "bValve/b 3  2" {
		t.Fatalf("unexpected %q", got)
	}
}
