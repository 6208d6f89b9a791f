package bizctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingDirFallsBackToDefault(t *testing.T) {
	t.Parallel()

	got := Load(Config{Dir: filepath.Join(t.TempDir(), "nope")})
	if !got.Degraded {
		t.Fatal("Degraded = false, want true for a missing collateral dir")
	}
	if !strings.Contains(got.Summary, "NeuraEstate") {
		t.Fatalf("Summary = %q, want the built-in summary", got.Summary)
	}
}

func TestLoadReadsSummaryAndCollateral(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("business_summary.txt", "We are a boutique Dubai agency.")
	write("faq.md", "Q: fees? A: none for buyers.")
	write("brochure.pdf", "%PDF-1.4 binary")

	got := Load(Config{Dir: dir})
	if got.Degraded {
		t.Fatal("Degraded = true with a readable summary")
	}
	if !strings.HasPrefix(got.Summary, "We are a boutique Dubai agency.") {
		t.Fatalf("Summary = %q, want it to start with the summary file", got.Summary)
	}
	if !strings.Contains(got.Summary, "fees? A: none") {
		t.Fatal("markdown collateral not included")
	}
	if !strings.Contains(got.Summary, "Additional collateral available in brochure.pdf") {
		t.Fatal("binary collateral not referenced by name")
	}
}
