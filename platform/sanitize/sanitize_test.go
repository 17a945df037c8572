package sanitize

import "testing"

func TestTextStripsTagsAndEncodedTags(t *testing.T) {
	got := Text("Patient <b>prefers</b> &lt;script&gt;alert(1)&lt;/script&gt; morning   flights")
	want := "Patient prefers alert(1) morning flights"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTextPtrBlankBecomesNil(t *testing.T) {
	blank := "  <br/> "
	if TextPtr(&blank) != nil {
		t.Fatal("expected nil for blank input")
	}
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("서울대학교병원", 2); got != "서울" {
		t.Fatalf("expected first two runes, got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
}
