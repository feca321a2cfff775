package biomarker

import (
	"testing"

	"github.com/google/uuid"
)

func strptr(s string) *string { return &s }

func testCatalog() *Catalog {
	c := NewCatalog(nil)
	c.Replace([]*Biomarker{
		{
			ID:            uuid.New(),
			Code:          "hemoglobin",
			CanonicalName: "Hemoglobin",
			NameLocal:     strptr("Гемоглобин"),
			Aliases:       []string{"HGB", "Hb"},
			Unit:          strptr("g/dL"),
		},
		{
			ID:            uuid.New(),
			Code:          "glucose",
			CanonicalName: "Glucose",
			NameLocal:     strptr("Глюкоза"),
			Aliases:       []string{"GLU", "Blood sugar"},
			Unit:          strptr("mmol/L"),
		},
		{
			ID:            uuid.New(),
			Code:          "ferritin",
			CanonicalName: "Ferritin",
			NameLocal:     strptr("Ферритин"),
			Unit:          strptr("ng/mL"),
		},
	})
	return c
}

func TestMatch_ExactAcrossLabelVariants(t *testing.T) {
	c := testCatalog()
	for _, label := range []string{
		"Hemoglobin", "hemoglobin", "HGB", "hb",
		"Гемоглобин", "ГЕМОГЛОБИН", "Hemoglobin (HGB)",
	} {
		got := c.Match(label)
		if got == nil || got.Code != "hemoglobin" {
			t.Errorf("Match(%q) should resolve to hemoglobin, got %v", label, got)
		}
	}
}

func TestMatch_FuzzyToleratesTypos(t *testing.T) {
	c := testCatalog()
	got := c.Match("Hemoglobine")
	if got == nil || got.Code != "hemoglobin" {
		t.Errorf("Match(Hemoglobine) = %v, want hemoglobin", got)
	}
	got = c.Match("Феритин")
	if got == nil || got.Code != "ferritin" {
		t.Errorf("Match(Феритин) = %v, want ferritin", got)
	}
}

func TestMatch_ShortLabelsNeverFuzzy(t *testing.T) {
	c := testCatalog()
	// "hgb" matches exactly, but "hgc" must not fuzzy-match it.
	if got := c.Match("hgc"); got != nil {
		t.Errorf("short label should not fuzzy-match, got %s", got.Code)
	}
}

func TestMatch_UnknownLabel(t *testing.T) {
	c := testCatalog()
	if got := c.Match("Совершенно неизвестный показатель"); got != nil {
		t.Errorf("unknown label matched %s", got.Code)
	}
	if got := c.Match("  "); got != nil {
		t.Errorf("blank label matched %s", got.Code)
	}
}

func TestMatch_TieGoesToEarlierEntry(t *testing.T) {
	c := NewCatalog(nil)
	c.Replace([]*Biomarker{
		{Code: "first", CanonicalName: "marker one"},
		{Code: "second", CanonicalName: "marker two"},
	})
	// "marker oo" is edit distance 2 from both entries.
	got := c.Match("marker oo")
	if got == nil || got.Code != "first" {
		t.Errorf("tie should go to the earlier entry, got %v", got)
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hemoglobin (HGB)", "hemoglobin hgb"},
		{"Витамин D", "vitamin d"},
		{"  ALT,  SGPT  ", "alt sgpt"},
	}
	for _, c := range cases {
		if got := normalizeLabel(c.in); got != c.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
