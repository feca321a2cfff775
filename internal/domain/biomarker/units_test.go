package biomarker

import "testing"

func TestConvert_HemoglobinGramsPerLiter(t *testing.T) {
	bm := &Biomarker{Code: "hemoglobin", Unit: strptr("g/dL")}

	v, u := Convert(bm, 132, "g/L")
	if v != 13.2 || u != "g/dL" {
		t.Errorf("Convert(132 g/L) = %v %s, want 13.2 g/dL", v, u)
	}

	// The same factor rescales the lab's reference bounds.
	f, ok := ConversionFactor(bm.Code, "g/L", *bm.Unit)
	if !ok {
		t.Fatal("expected a g/L to g/dL factor")
	}
	if got := Round4(120 * f); got != 12 {
		t.Errorf("ref min = %v, want 12", got)
	}
	if got := Round4(160 * f); got != 16 {
		t.Errorf("ref max = %v, want 16", got)
	}
}

func TestConvert_AnalyteSpecificFactor(t *testing.T) {
	bm := &Biomarker{Code: "glucose", Unit: strptr("mmol/L")}
	v, u := Convert(bm, 90, "mg/dL")
	if v != 4.995 || u != "mmol/L" {
		t.Errorf("Convert(90 mg/dL glucose) = %v %s, want 4.995 mmol/L", v, u)
	}
}

func TestConvert_SameUnitUntouched(t *testing.T) {
	bm := &Biomarker{Code: "glucose", Unit: strptr("mmol/L")}
	v, u := Convert(bm, 5.4, "mmol/l")
	if v != 5.4 || u != "mmol/L" {
		t.Errorf("Convert same unit = %v %s", v, u)
	}
}

func TestConvert_NoPathKeepsOriginal(t *testing.T) {
	bm := &Biomarker{Code: "hemoglobin", Unit: strptr("g/dL")}
	v, u := Convert(bm, 7, "furlongs")
	if v != 7 || u != "furlongs" {
		t.Errorf("unknown unit should pass through, got %v %s", v, u)
	}
}

func TestConvert_MissingCanonicalUnit(t *testing.T) {
	bm := &Biomarker{Code: "esr"}
	v, u := Convert(bm, 12, "mm/h")
	if v != 12 || u != "mm/h" {
		t.Errorf("no canonical unit should pass through, got %v %s", v, u)
	}
}

func TestNormalizeUnit(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" g/L ", "g/l"},
		{"µmol/L", "umol/l"},
		{"μIU/mL", "uiu/ml"},
		{"10^9/L", "10^9/l"},
	}
	for _, c := range cases {
		if got := NormalizeUnit(c.in); got != c.want {
			t.Errorf("NormalizeUnit(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRound4(t *testing.T) {
	if got := Round4(4.99500001); got != 4.995 {
		t.Errorf("Round4 = %v", got)
	}
	if got := Round4(1.23456); got != 1.2346 {
		t.Errorf("Round4(1.23456) = %v", got)
	}
}
