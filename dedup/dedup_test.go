package dedup

import "testing"

func TestFingerprint_IdenticalTexts(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	fp1 := Fingerprint(text)
	fp2 := Fingerprint(text)

	if fp1 != fp2 {
		t.Errorf("identical texts produced different fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestFingerprint_SimilarTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "the quick brown fox leaps over the lazy dog"

	dist := Distance(Fingerprint(text1), Fingerprint(text2))
	if dist > 10 {
		t.Errorf("similar texts have too large distance: %d", dist)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "completely unrelated content about quantum physics and mathematics"

	dist := Distance(Fingerprint(text1), Fingerprint(text2))
	if dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestFingerprint_Empty(t *testing.T) {
	if fp := Fingerprint("   "); fp != 0 {
		t.Errorf("whitespace-only text fingerprint = %d, want 0", fp)
	}
}

func TestDistance_Self(t *testing.T) {
	fp := Fingerprint("some stable input text")
	if d := Distance(fp, fp); d != 0 {
		t.Errorf("self distance = %d, want 0", d)
	}
}

func TestSet_ExactDuplicate(t *testing.T) {
	s := NewSet(3)
	text := "breaking news about a merger between two large companies announced today"

	if s.Seen(text) {
		t.Error("first occurrence reported as duplicate")
	}
	if !s.Seen(text) {
		t.Error("second occurrence not reported as duplicate")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSet_NearDuplicate(t *testing.T) {
	s := NewSet(10)
	a := "breaking news about a merger between two large companies announced today"
	b := "breaking news about a merger between two large firms announced today"

	if s.Seen(a) {
		t.Error("first text reported as duplicate")
	}
	if !s.Seen(b) {
		t.Error("near-identical text not detected with a generous threshold")
	}
}

func TestSet_DistinctContent(t *testing.T) {
	s := NewSet(3)
	a := "breaking news about a merger between two large companies announced today"
	b := "recipe for sourdough bread with a long cold fermentation in the fridge"

	if s.Seen(a) || s.Seen(b) {
		t.Error("distinct texts reported as duplicates")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestSet_IgnoresEmpty(t *testing.T) {
	s := NewSet(3)
	if s.Seen("") {
		t.Error("empty text reported as duplicate")
	}
	if s.Len() != 0 {
		t.Errorf("empty text was recorded, Len() = %d", s.Len())
	}
}
