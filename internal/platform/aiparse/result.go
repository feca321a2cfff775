// Package aiparse extracts structured lab results from uploaded
// report files through external vision-capable model APIs.
package aiparse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a measurement that labs report either as a number or as
// free text ("negative", "trace", "+").
type Value struct {
	Number float64
	Text   string
	IsNum  bool
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		v.Number = n
		v.IsNum = true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("value must be a number or a string: %w", err)
	}
	v.Text = s
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

func (v Value) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Reading is one measurement row as extracted by the model.
type Reading struct {
	Name   string   `json:"name"`
	Value  Value    `json:"value"`
	Unit   *string  `json:"unit"`
	RefMin *float64 `json:"ref_min"`
	RefMax *float64 `json:"ref_max"`
	Flag   string   `json:"flag"`
}

// Result is the structured content of one report page set.
type Result struct {
	PatientName   *string   `json:"patient_name"`
	PatientDOB    *string   `json:"patient_dob"`
	PatientSex    *string   `json:"patient_sex"`
	TestDate      *string   `json:"test_date"`
	LabName       *string   `json:"lab_name"`
	DocumentType  *string   `json:"document_type"`
	Language      *string   `json:"language"`
	PartialResult bool      `json:"partial_result"`
	Readings      []Reading `json:"readings"`
	Notes         []string  `json:"notes,omitempty"`
}

// Response wraps a parse result with provider accounting.
type Response struct {
	Result    *Result
	Model     string
	TokensIn  int
	TokensOut int
}

// Provider turns a raw uploaded file into a parse result.
type Provider interface {
	// Parse extracts lab data from the document. locale hints the
	// language names should be rendered in.
	Parse(ctx context.Context, data []byte, mimeType, locale string) (*Response, error)
	Name() string
}

// decodeResult strips markdown fences the models sometimes wrap
// around JSON output and unmarshals the payload.
func decodeResult(text string) (*Result, error) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if i := strings.LastIndex(t, "```"); i >= 0 {
			t = t[:i]
		}
		t = strings.TrimSpace(t)
	}
	var r Result
	if err := json.Unmarshal([]byte(t), &r); err != nil {
		return nil, fmt.Errorf("decode parse result: %w", err)
	}
	return &r, nil
}
