package ingestion

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrLanguageUndetected is returned when no language can be inferred from the text.
var ErrLanguageUndetected = errors.New("language could not be detected")

// LanguageDetector reports the ISO 639-1 code of a text's language.
type LanguageDetector interface {
	DetectLanguage(text string) (string, error)
}

// WhatlangDetector detects language with trigram statistics.
type WhatlangDetector struct{}

// NewWhatlangDetector returns a detector.
func NewWhatlangDetector() WhatlangDetector {
	return WhatlangDetector{}
}

// DetectLanguage implements LanguageDetector.
func (WhatlangDetector) DetectLanguage(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrLanguageUndetected
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return "", ErrLanguageUndetected
	}

	if code := info.Lang.Iso6391(); code != "" {
		return code, nil
	}
	return info.Lang.Iso6393(), nil
}

// IsEnglish reports whether d classifies text as English. A detection error
// counts as English so undetectable text is not dropped.
func IsEnglish(d LanguageDetector, text string) bool {
	lang, err := d.DetectLanguage(text)
	if err != nil {
		return true
	}
	return lang == "en"
}
