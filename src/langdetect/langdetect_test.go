package langdetect

import (
	"testing"

	"screen-translate/src/lang"
)

func TestDetectScriptsHiragana(t *testing.T) {
	h := DetectScripts("こんにちは")
	if len(h) != 1 || h[Hiragana] != 5 {
		t.Fatalf("Expected {hiragana:5}, got %v", h)
	}
}

func TestDetectScriptsSkipsSpaceAndPunctuation(t *testing.T) {
	h := DetectScripts(" a.b, 「c」\n")
	if h[Latin] != 3 || h.Total() != 3 {
		t.Fatalf("Expected 3 latin characters, got %v", h)
	}
	if got := DetectScripts(""); len(got) != 0 {
		t.Fatalf("Expected empty histogram, got %v", got)
	}
}

func TestDetectLanguageShortInput(t *testing.T) {
	for _, in := range []string{"", " ", "a", "  a  ", "日", "\n\t"} {
		got := DetectLanguage(in)
		if !lang.Equal(got, []lang.Code{"en"}) {
			t.Errorf("Expected [en] for %q, got %v", in, got)
		}
	}
}

func TestDetectLanguageUnclassified(t *testing.T) {
	got := DetectLanguage("123 456 !!")
	if !lang.Equal(got, []lang.Code{"en"}) {
		t.Fatalf("Expected [en], got %v", got)
	}
}

func TestDetectLanguageSingleScript(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []lang.Code
	}{
		{"hiragana", "こんにちは", []lang.Code{"ja"}},
		{"katakana", "テスト", []lang.Code{"ja"}},
		{"hangul", "안녕하세요", []lang.Code{"ko"}},
		{"latin", "Hello world", []lang.Code{"en"}},
		{"cyrillic", "Привет мир", []lang.Code{"ru"}},
		{"arabic", "مرحبا بالعالم", []lang.Code{"ar"}},
		{"thai", "สวัสดี", []lang.Code{"th"}},
		// kanji alone scores as Japanese, which always shadows the Chinese rule
		{"kanji", "你好世界", []lang.Code{"ja"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectLanguage(tt.text)
			if !lang.Equal(got, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetectLanguageBelowThreshold(t *testing.T) {
	// one hangul among ten latin characters is 9.1%
	got := DetectLanguage("abcdefghij안")
	if !lang.Equal(got, []lang.Code{"en"}) {
		t.Fatalf("Expected [en], got %v", got)
	}
	// exactly 20% cyrillic does not pass a strict threshold
	got = DetectLanguage("abcdЖ")
	if !lang.Equal(got, []lang.Code{"en"}) {
		t.Fatalf("Expected [en], got %v", got)
	}
}

func TestDetectLanguageMixed(t *testing.T) {
	got := DetectLanguage("Hello こんにちは")
	hasJA, hasEN := false, false
	for _, c := range got {
		switch c {
		case "ja":
			hasJA = true
		case "en":
			hasEN = true
		}
	}
	if !hasJA || !hasEN {
		t.Fatalf("Expected both ja and en, got %v", got)
	}
	if got[0] != "ja" {
		t.Errorf("Expected ja first, got %v", got)
	}
}

func TestOCRAdvice(t *testing.T) {
	a := OCRAdvice("こんにちは世界")
	if a.RecommendedMode != EngineRich {
		t.Errorf("Expected %s, got %s", EngineRich, a.RecommendedMode)
	}
	if a.Confidence != "low" {
		t.Errorf("Expected low confidence for 7 characters, got %s", a.Confidence)
	}
	if a.Scripts[Hiragana] != 5 || a.Scripts[CJK] != 2 {
		t.Errorf("Unexpected scripts %v", a.Scripts)
	}

	a = OCRAdvice("Hello world, this is a test")
	if a.RecommendedMode != EngineFast {
		t.Errorf("Expected %s, got %s", EngineFast, a.RecommendedMode)
	}
	if a.Confidence != "high" {
		t.Errorf("Expected high confidence, got %s", a.Confidence)
	}
	if !lang.Equal(a.Languages, []lang.Code{"en"}) {
		t.Errorf("Expected [en], got %v", a.Languages)
	}
}
