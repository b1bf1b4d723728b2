package playlist

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Roman Empire", "roman-empire"},
		{"  Hello,   World!  ", "hello-world"},
		{"already-slugged", "already-slugged"},
		{"UPPER_case & symbols!!", "upper-case-symbols"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalKey_Deterministic(t *testing.T) {
	a := CanonicalKey("Main Channel", "Historian", "Roman Empire", "Shorts")
	b := CanonicalKey("main channel", "historian", "roman empire", "shorts")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "main-channel-historian-roman-empire-shorts" {
		t.Errorf("key = %q", a)
	}
}

func TestCanonicalKey_SkipsEmptyParts(t *testing.T) {
	got := CanonicalKey("acct", "", "topic", "shorts")
	if got != "acct-topic-shorts" {
		t.Errorf("key = %q", got)
	}
}

func TestTagRoundTrip(t *testing.T) {
	key := "main-historian-rome-shorts"
	desc := TagDescription("Auto-generated history shorts", key)

	parsed, ok := ParseTag(desc)
	if !ok {
		t.Fatal("tag not found in tagged description")
	}
	if parsed != key {
		t.Errorf("parsed = %q, want %q", parsed, key)
	}
}

func TestTagDescription_EmptyDescription(t *testing.T) {
	got := TagDescription("", "some-key")
	if got != FormatTag("some-key") {
		t.Errorf("TagDescription = %q", got)
	}
}

func TestParseTag_NoTag(t *testing.T) {
	if _, ok := ParseTag("just a normal playlist description"); ok {
		t.Error("ParseTag must not match untagged descriptions")
	}
}

func TestParseTag_ForeignTagIgnored(t *testing.T) {
	if _, ok := ParseTag("[managed-by:other-app; key:some-key]"); ok {
		t.Error("ParseTag must ignore other applications' tags")
	}
}
