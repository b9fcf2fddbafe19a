package match

import "testing"

func TestSimilarity_Identical(t *testing.T) {
	cases := []string{
		"aceite de oliva virgen extra",
		"tomate",
		"queso manchego curado 1kg",
	}
	for _, s := range cases {
		if got := Similarity(s, s); got != 1 {
			t.Errorf("Similarity(%q, %q) = %v, want 1", s, s, got)
		}
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"aceite oliva", "aceite de girasol"},
		{"tomate frito", "pimiento rojo"},
		{"", "queso"},
		{"queso", ""},
		{"x", "y"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestSimilarity_Tiers(t *testing.T) {
	// One exact token out of two on each side.
	if got := Similarity("aceite oliva", "aceite girasol"); got != 0.5 {
		t.Errorf("exact tier: got %v, want 0.5", got)
	}
	// Containment of tokens longer than three runes.
	if got := Similarity("tomates", "tomate"); got != 0.8 {
		t.Errorf("containment tier: got %v, want 0.8", got)
	}
	// Typo within edit distance two.
	if got := Similarity("azucar", "asucar"); got != 0.6 {
		t.Errorf("near tier: got %v, want 0.6", got)
	}
	// Nothing in common.
	if got := Similarity("merluza congelada", "vino tinto crianza"); got != 0 {
		t.Errorf("disjoint: got %v, want 0", got)
	}
}

func TestSimilarity_AsymmetricTokenCounts(t *testing.T) {
	// Extra candidate tokens dilute the score through the max denominator.
	got := Similarity("aceite", "aceite de oliva virgen extra")
	want := 1.0 / 5.0 // "de" is kept by cleanTokens; 5 candidate tokens
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScoreNames_TakesMaximum(t *testing.T) {
	got := ScoreNames("tomate pera", "Tomate Pera Extra Cat I", "tomate pera")
	if got != 1 {
		t.Errorf("got %v, want 1 via normalized name", got)
	}
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Aceite de Oliva Virgen Extra 5L", []string{"aceite", "oliva", "virgen"}},
		{"pan", []string{"pan"}},
		{"de con sin", nil},
		{"LOMO DE ATÚN", []string{"lomo", "atún"}},
	}
	for _, c := range cases {
		got := Keywords(c.in)
		if len(got) != len(c.want) {
			t.Errorf("Keywords(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("Keywords(%q) = %v, want %v", c.in, got, c.want)
				break
			}
		}
	}
}

func TestNormalizeSupplierName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Distribuciones Pérez S.L.", "distribuciones perez sl"},
		{"MAKRO, S.A.", "makro sa"},
		{"Frutas López S.L.U.", "frutas lopez slu"},
		{"  Café  Central ", "cafe central"},
	}
	for _, c := range cases {
		if got := NormalizeSupplierName(c.in); got != c.want {
			t.Errorf("NormalizeSupplierName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSupplierNamesMatch(t *testing.T) {
	if !SupplierNamesMatch("Distribuciones Pérez S.L.", "DISTRIBUCIONES PEREZ SL") {
		t.Error("expected normalized forms to match")
	}
	if !SupplierNamesMatch("Makro Autoservicio Mayorista", "MAKRO S.A.") {
		t.Error("expected leading-token match")
	}
	if SupplierNamesMatch("Frutas López", "Pescados López") {
		t.Error("different leading tokens must not match")
	}
	if SupplierNamesMatch("", "Makro") {
		t.Error("empty name must not match")
	}
}
