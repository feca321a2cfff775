package ingest

import (
	"strings"
	"time"

	"github.com/biopulse/biopulse/internal/domain/profile"
	"github.com/biopulse/biopulse/internal/platform/aiparse"
)

// ContinuationWindow is how long after a completed upload a follow-up
// file can still be treated as another page of the same report. Each
// accepted page slides the window forward.
const ContinuationWindow = 2 * time.Minute

// labPrefixLen is how many leading characters of the lab name must
// agree. Lab names on later pages are often truncated or carry extra
// branch suffixes, so only the prefix is compared.
const labPrefixLen = 6

// continuationMatch reports whether a freshly parsed result looks
// like another page of the account's last upload. The patient name
// must be absent or key-equal to the prior one, and at least one
// context signal (lab name prefix, document type, test date) must
// also agree.
func continuationMatch(last *lastUpload, parsed *aiparse.Result) bool {
	if name := deref(parsed.PatientName); strings.TrimSpace(name) != "" {
		if profile.NameKey(name) != profile.NameKey(last.PatientName) {
			return false
		}
	}
	return labPrefixEqual(last.LabName, parsed.LabName) ||
		bothEqual(last.DocumentType, parsed.DocumentType) ||
		bothEqual(last.TestDate, parsed.TestDate)
}

func labPrefixEqual(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	return labPrefix(*a) != "" && labPrefix(*a) == labPrefix(*b)
}

func labPrefix(s string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) > labPrefixLen {
		r = r[:labPrefixLen]
	}
	return string(r)
}

func bothEqual(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
