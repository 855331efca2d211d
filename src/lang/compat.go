package lang

// pairedWithEnglish lists scripts the rich OCR backend only ships paired with
// English.
var pairedWithEnglish = map[Code]bool{
	Japanese: true,
	Korean:   true,
}

// excludedWithAsian cannot be loaded next to Japanese or Korean by the rich
// OCR backend.
var excludedWithAsian = map[Code]bool{
	French:     true,
	Spanish:    true,
	German:     true,
	Italian:    true,
	Portuguese: true,
	Russian:    true,
	Arabic:     true,
	Thai:       true,
}

// FixCompatibility adjusts a requested language list to one the rich OCR
// backend accepts. When Japanese or Korean is requested, English is appended
// if missing and every entry of the excluded family is dropped. Order of the
// surviving entries is preserved and duplicates are removed. The input slice
// is never modified.
func FixCompatibility(requested []Code) []Code {
	asian := false
	for _, c := range requested {
		if pairedWithEnglish[c] {
			asian = true
			break
		}
	}

	out := make([]Code, 0, len(requested)+1)
	seen := make(map[Code]bool, len(requested)+1)
	hasEnglish := false
	for _, c := range requested {
		if seen[c] {
			continue
		}
		if asian && excludedWithAsian[c] {
			continue
		}
		seen[c] = true
		if c == English {
			hasEnglish = true
		}
		out = append(out, c)
	}
	if asian && !hasEnglish {
		out = append(out, English)
	}
	return out
}
