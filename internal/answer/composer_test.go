package answer

import (
	"strings"
	"testing"
)

func TestPreviewShortContentUntouched(t *testing.T) {
	content := "Art content under the limit."
	if got := preview(content); got != content {
		t.Fatalf("short content altered: %q", got)
	}
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	content := strings.Repeat("ż", 500)
	got := preview(content)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != previewLimit {
		t.Fatalf("expected %d runes, got %d", previewLimit, n)
	}
}
