package keys

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

func TestProduct_Deterministic(t *testing.T) {
	k1 := Product("LC09_L2SP_192018_20260712", "NDVI", "v1")
	k2 := Product("LC09_L2SP_192018_20260712", "NDVI", "v1")
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
}

func TestProduct_DifferentInputsDiffer(t *testing.T) {
	base := Product("sceneA", "NDVI", "v1")
	if Product("sceneB", "NDVI", "v1") == base {
		t.Fatal("different scenes must produce different keys")
	}
	if Product("sceneA", "NBR", "v1") == base {
		t.Fatal("different indices must produce different keys")
	}
	if Product("sceneA", "NDVI", "v1:pre=sceneB") == base {
		t.Fatal("different params must produce different keys")
	}
}

func TestProduct_ParamsAreHashedNotEmbedded(t *testing.T) {
	k := Product("scene", "NDVI", "pre='weird input' AND x=1")
	m := regexp.MustCompile(`:p=([0-9a-f]{16})$`).FindStringSubmatch(k)
	if len(m) != 2 {
		t.Fatalf("missing or invalid :p=<hex64> suffix in key: %s", k)
	}
	if strings.Contains(k, "weird") {
		t.Fatalf("raw params leaked into key: %s", k)
	}
}

func TestProduct_UnicodeSafety(t *testing.T) {
	k := Product("scène 雪", "NDVI", "")
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
}

func TestSanitize_CollapsesSeparatorRuns(t *testing.T) {
	k := SceneSet("a   b///c")
	if k != "sceneidx:a_b-c" {
		t.Fatalf("SceneSet = %s, want sceneidx:a_b-c", k)
	}
}

func TestSetKeys_Prefixes(t *testing.T) {
	if got := SceneSet("LC09"); got != "sceneidx:LC09" {
		t.Fatalf("SceneSet = %s", got)
	}
	if got := CellSet("861f1d4c7ffffff"); got != "cellidx:861f1d4c7ffffff" {
		t.Fatalf("CellSet = %s", got)
	}
}
