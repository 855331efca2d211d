// Package langdetect guesses the language of a text sample from the Unicode
// scripts its characters belong to. It is used to pick OCR languages, so it
// favours returning several candidates over a single brittle answer.
package langdetect

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"screen-translate/src/lang"
)

// Script is a Unicode character-range category.
type Script string

const (
	Latin    Script = "latin"
	Cyrillic Script = "cyrillic"
	Arabic   Script = "arabic"
	Hiragana Script = "hiragana"
	Katakana Script = "katakana"
	CJK      Script = "cjk"
	Hangul   Script = "hangul"
	Thai     Script = "thai"
)

type runeRange struct{ lo, hi rune }

type scriptRanges struct {
	script Script
	ranges []runeRange
}

// scriptTable is walked in order; the first matching range wins.
var scriptTable = []scriptRanges{
	{Latin, []runeRange{{0x0041, 0x007A}, {0x00C0, 0x00FF}}},
	{Cyrillic, []runeRange{{0x0400, 0x04FF}}},
	{Arabic, []runeRange{{0x0600, 0x06FF}}},
	{Hiragana, []runeRange{{0x3040, 0x309F}}},
	{Katakana, []runeRange{{0x30A0, 0x30FF}}},
	{CJK, []runeRange{{0x4E00, 0x9FFF}}},
	{Hangul, []runeRange{{0xAC00, 0xD7AF}}},
	{Thai, []runeRange{{0x0E00, 0x0E7F}}},
}

const ignoredPunctuation = ".,;:!?-—()[]{}「」『』"

const (
	japaneseThreshold = 10.0
	koreanThreshold   = 10.0
	scriptThreshold   = 20.0
	asianEngineShare  = 30.0
	highConfidenceMin = 10
)

// Histogram counts classified characters per script.
type Histogram map[Script]int

// Total returns the number of classified characters.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

func (h Histogram) percent(s Script, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(h[s]) / float64(total) * 100
}

// DetectScripts classifies every non-space, non-punctuation rune of text.
func DetectScripts(text string) Histogram {
	h := Histogram{}
	for _, r := range text {
		if unicode.IsSpace(r) || strings.ContainsRune(ignoredPunctuation, r) {
			continue
		}
		if s, ok := classify(r); ok {
			h[s]++
		}
	}
	return h
}

func classify(r rune) (Script, bool) {
	for _, entry := range scriptTable {
		for _, rr := range entry.ranges {
			if r >= rr.lo && r <= rr.hi {
				return entry.script, true
			}
		}
	}
	return "", false
}

// DetectLanguage returns the probable languages of text, most likely first.
// The result is never empty: short, empty or unclassifiable samples yield
// ["en"]. Rules are independent so mixed-script text can produce several
// languages.
func DetectLanguage(text string) []lang.Code {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 2 {
		return []lang.Code{lang.Default}
	}

	h := DetectScripts(text)
	total := h.Total()
	if total == 0 {
		return []lang.Code{lang.Default}
	}

	pct := func(s Script) float64 { return h.percent(s, total) }

	var detected []lang.Code

	japanese := pct(Hiragana) + pct(Katakana) + 0.5*pct(CJK)
	if japanese > japaneseThreshold {
		detected = append(detected, lang.Japanese)
	}
	// simplified is assumed; there is no script level way to tell the two apart
	if pct(CJK) > scriptThreshold && japanese <= japaneseThreshold {
		detected = append(detected, lang.ChineseSimplified)
	}
	if pct(Hangul) > koreanThreshold {
		detected = append(detected, lang.Korean)
	}
	if pct(Latin) > scriptThreshold {
		detected = append(detected, lang.English)
	}
	if pct(Cyrillic) > scriptThreshold {
		detected = append(detected, lang.Russian)
	}
	if pct(Arabic) > scriptThreshold {
		detected = append(detected, lang.Arabic)
	}
	if pct(Thai) > scriptThreshold {
		detected = append(detected, lang.Thai)
	}

	if len(detected) == 0 {
		return []lang.Code{lang.Default}
	}
	return detected
}

// Engine names recommended by OCRAdvice.
const (
	EngineFast = "tesseract"
	EngineRich = "easyocr"
)

// Advice is an advisory OCR configuration derived from a text sample.
type Advice struct {
	Languages       []lang.Code `json:"languages"`
	RecommendedMode string      `json:"recommended_mode"`
	Scripts         Histogram   `json:"scripts_detected"`
	Confidence      string      `json:"confidence"`
}

// OCRAdvice recommends the rich engine when more than 30% of the classified
// characters are Asian scripts. Confidence is "high" above ten classified
// characters.
func OCRAdvice(text string) Advice {
	h := DetectScripts(text)
	total := h.Total()

	asian := h[Hiragana] + h[Katakana] + h[CJK] + h[Hangul]
	var asianPct float64
	if total > 0 {
		asianPct = float64(asian) / float64(total) * 100
	}

	mode := EngineFast
	if asianPct > asianEngineShare {
		mode = EngineRich
	}
	confidence := "low"
	if total > highConfidenceMin {
		confidence = "high"
	}

	return Advice{
		Languages:       DetectLanguage(text),
		RecommendedMode: mode,
		Scripts:         h,
		Confidence:      confidence,
	}
}
