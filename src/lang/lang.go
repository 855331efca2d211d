// Package lang holds the closed language-code vocabulary shared by detection,
// OCR language selection and translation prompts.
package lang

import "strings"

// Code is a short language token such as "en", "ja" or "ch_sim".
type Code string

const (
	English            Code = "en"
	French             Code = "fr"
	Spanish            Code = "es"
	German             Code = "de"
	Italian            Code = "it"
	Portuguese         Code = "pt"
	Japanese           Code = "ja"
	Korean             Code = "ko"
	Chinese            Code = "zh"
	ChineseSimplified  Code = "ch_sim"
	ChineseTraditional Code = "ch_tra"
	Russian            Code = "ru"
	Arabic             Code = "ar"
	Thai               Code = "th"
	Vietnamese         Code = "vi"
)

// Default is used whenever a detection has nothing to go on.
const Default = English

var names = map[Code]string{
	English:            "English",
	French:             "French",
	Spanish:            "Spanish",
	German:             "German",
	Italian:            "Italian",
	Japanese:           "Japanese",
	Korean:             "Korean",
	Chinese:            "Chinese",
	ChineseSimplified:  "Chinese (Simplified)",
	ChineseTraditional: "Chinese (Traditional)",
	Russian:            "Russian",
	Arabic:             "Arabic",
	Thai:               "Thai",
	Vietnamese:         "Vietnamese",
	Portuguese:         "Portuguese",
}

// tesseract traineddata names
var tesseractNames = map[Code]string{
	English:            "eng",
	French:             "fra",
	Spanish:            "spa",
	German:             "deu",
	Italian:            "ita",
	Portuguese:         "por",
	Japanese:           "jpn",
	Korean:             "kor",
	Chinese:            "chi_sim",
	ChineseSimplified:  "chi_sim",
	ChineseTraditional: "chi_tra",
	Russian:            "rus",
	Arabic:             "ara",
	Thai:               "tha",
	Vietnamese:         "vie",
}

// Name returns the English display name used in prompts. Unknown codes are
// returned unchanged.
func Name(c Code) string {
	if n, ok := names[c]; ok {
		return n
	}
	return string(c)
}

// Tesseract maps a code to its tesseract language; unknown codes map to "eng".
func Tesseract(c Code) string {
	if n, ok := tesseractNames[c]; ok {
		return n
	}
	return "eng"
}

// EasyOCR maps a code to the easyocr reader language. EasyOCR shares most of
// the vocabulary; "zh" has no reader of its own and maps to simplified.
func EasyOCR(c Code) string {
	if c == Chinese {
		return string(ChineseSimplified)
	}
	if _, ok := names[c]; ok {
		return string(c)
	}
	return string(English)
}

// Parse normalises a user supplied token ("JA", " zh ") into a Code.
func Parse(s string) Code {
	return Code(strings.ToLower(strings.TrimSpace(s)))
}

// ParseList parses a list of tokens, dropping empty entries and duplicates
// while keeping order.
func ParseList(items []string) []Code {
	out := make([]Code, 0, len(items))
	seen := make(map[Code]bool, len(items))
	for _, it := range items {
		c := Parse(it)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Equal reports whether two ordered code lists are identical.
func Equal(a, b []Code) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
