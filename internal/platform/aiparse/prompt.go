package aiparse

import "fmt"

// buildPrompt assembles the extraction instructions. The locale
// controls the script biomarker names and notes are rendered in;
// the JSON contract itself is fixed.
func buildPrompt(locale string) string {
	lang := "Russian"
	if locale == "en" {
		lang = "English"
	}
	return fmt.Sprintf(`You are a medical lab report parser. Extract structured data from the attached lab report and respond with a single JSON object, no prose, no markdown.

JSON shape:
{
  "patient_name": string or null,
  "patient_dob": "YYYY-MM-DD" or null,
  "patient_sex": "male" | "female" or null,
  "test_date": "YYYY-MM-DD" or null,
  "lab_name": string or null,
  "document_type": string or null (e.g. "CBC", "biochemistry", "hormones"),
  "language": ISO 639-1 code of the report language or null,
  "partial_result": true when the page is visibly cut off or marked "continued",
  "readings": [
    {"name": string, "value": number or string, "unit": string or null,
     "ref_min": number or null, "ref_max": number or null,
     "flag": "normal" | "high" | "low" | "critical"}
  ],
  "notes": [string]
}

Rules:
- Keep the patient name exactly as printed, including its script.
- Render biomarker names in %s.
- Numeric values use "." as the decimal separator. Qualitative results ("отрицательно", "negative", "+") stay strings.
- Hematocrit is a percentage; a value like 0.45 printed as a fraction becomes 45.
- Derive the flag from the printed reference range when the lab prints no marker.
- Do not invent readings, reference ranges or dates that are not printed.
- Exclude administrative identifiers (order numbers, barcodes, insurance ids) from readings and notes.`, lang)
}
