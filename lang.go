package readably

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// Languages written right-to-left, by ISO 639 base code.
var rtlLangs = map[string]bool{
	"ar":  true,
	"arc": true,
	"ckb": true,
	"dv":  true,
	"fa":  true,
	"he":  true,
	"ks":  true,
	"ps":  true,
	"sd":  true,
	"ug":  true,
	"ur":  true,
	"yi":  true,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// langDetector lazily builds a shared detector. The candidate set covers
// the common web languages plus every right-to-left one the detector
// knows, so the ltr/rtl call stays reliable.
func langDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.Arabic,
				lingua.Chinese,
				lingua.Dutch,
				lingua.English,
				lingua.French,
				lingua.German,
				lingua.Hebrew,
				lingua.Hindi,
				lingua.Italian,
				lingua.Japanese,
				lingua.Korean,
				lingua.Persian,
				lingua.Portuguese,
				lingua.Russian,
				lingua.Spanish,
				lingua.Turkish,
				lingua.Urdu,
			).
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// Detection needs only a sample of the text.
const langSampleLen = 2000

// resolveDirection decides the content direction. An explicit dir attribute
// on the content ancestors wins; otherwise the document language implies it,
// detected from the extracted text as a last resort. Detection also fills in
// the language when the markup never declared one.
func (e *extractor) resolveDirection(textContent string) string {
	if e.articleDir != "" {
		return e.articleDir
	}

	if e.articleLang != "" {
		if tag, err := language.Parse(e.articleLang); err == nil {
			base, _ := tag.Base()
			if rtlLangs[base.String()] {
				return "rtl"
			}
			return "ltr"
		}
	}

	sample := strings.TrimSpace(textContent)
	if runes := []rune(sample); len(runes) > langSampleLen {
		sample = string(runes[:langSampleLen])
	}
	if sample != "" {
		if detected, ok := langDetector().DetectLanguageOf(sample); ok {
			iso := strings.ToLower(detected.IsoCode639_1().String())
			if e.articleLang == "" {
				e.articleLang = iso
			}
			if rtlLangs[iso] {
				return "rtl"
			}
		}
	}

	return "ltr"
}
