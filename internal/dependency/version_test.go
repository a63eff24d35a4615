package dependency

import "testing"

func TestParseVersionRelease(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Release) != 3 || v.Release[0] != 1 || v.Release[1] != 2 || v.Release[2] != 3 {
		t.Fatalf("unexpected release: %v", v.Release)
	}
}

func TestParseVersionPreRelease(t *testing.T) {
	v, err := ParseVersion("2.0.0rc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Pre == nil || v.Pre.Kind != PreRC || v.Pre.Num != 1 {
		t.Fatalf("unexpected pre-release: %+v", v.Pre)
	}
}

func TestParseVersionDevAndPost(t *testing.T) {
	v, err := ParseVersion("1.0.0.post2.dev3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Post == nil || *v.Post != 2 {
		t.Fatalf("unexpected post: %v", v.Post)
	}
	if v.Dev == nil || *v.Dev != 3 {
		t.Fatalf("unexpected dev: %v", v.Dev)
	}
}

func TestParseVersionEmptyErrors(t *testing.T) {
	if _, err := ParseVersion(""); err == nil {
		t.Fatal("expected error for empty version")
	}
}

func TestCompareVersionsRelease(t *testing.T) {
	a, _ := ParseVersion("1.2.0")
	b, _ := ParseVersion("1.10.0")
	if CompareVersions(a, b) >= 0 {
		t.Fatalf("expected 1.2.0 < 1.10.0")
	}
}

func TestCompareVersionsPhaseOrdering(t *testing.T) {
	dev, _ := ParseVersion("1.0.0.dev1")
	pre, _ := ParseVersion("1.0.0a1")
	final, _ := ParseVersion("1.0.0")
	post, _ := ParseVersion("1.0.0.post1")

	if CompareVersions(dev, pre) >= 0 {
		t.Fatal("expected dev < pre-release")
	}
	if CompareVersions(pre, final) >= 0 {
		t.Fatal("expected pre-release < final")
	}
	if CompareVersions(final, post) >= 0 {
		t.Fatal("expected final < post")
	}
}

func TestCompareVersionsPreReleaseKindOrdering(t *testing.T) {
	alpha, _ := ParseVersion("1.0.0a1")
	beta, _ := ParseVersion("1.0.0b1")
	rc, _ := ParseVersion("1.0.0rc1")

	if CompareVersions(alpha, beta) >= 0 {
		t.Fatal("expected alpha < beta")
	}
	if CompareVersions(beta, rc) >= 0 {
		t.Fatal("expected beta < rc")
	}
}

func TestCompareVersionsEqualMissingTrailingComponents(t *testing.T) {
	a, _ := ParseVersion("1.0")
	b, _ := ParseVersion("1.0.0")
	if CompareVersions(a, b) != 0 {
		t.Fatalf("expected 1.0 == 1.0.0, got %d", CompareVersions(a, b))
	}
}
