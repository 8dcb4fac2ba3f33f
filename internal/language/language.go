// Package language validates the recognition language passed to engines.
// Whisper-family engines take ISO 639-1 codes; users may write full BCP 47
// tags ("en-US", "pt_BR") which are reduced to their base language.
package language

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto means the engine detects the language itself.
const Auto = ""

// codes Whisper can transcribe
var codes = []string{
	"af", "ar", "az", "be", "bg", "bs", "ca", "cs", "cy", "da", "de", "el",
	"en", "es", "et", "fa", "fi", "fr", "gl", "he", "hi", "hr", "hu", "hy",
	"id", "is", "it", "ja", "kk", "kn", "ko", "lt", "lv", "mi", "mk", "mr",
	"ms", "ne", "nl", "no", "pl", "pt", "ro", "ru", "sk", "sl", "sr", "sv",
	"sw", "ta", "th", "tl", "tr", "uk", "ur", "vi", "zh",
}

// Normalize reduces code to a supported ISO 639-1 base language.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == Auto {
		return Auto, nil
	}

	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", code, err)
	}
	base, _ := tag.Base()

	if !slices.Contains(codes, base.String()) {
		return "", fmt.Errorf("unsupported language %q", code)
	}
	return base.String(), nil
}

// IsValidCode returns true if code normalizes to a supported language
// (including empty for auto)
func IsValidCode(code string) bool {
	_, err := Normalize(code)
	return err == nil
}

// Label returns a human-readable label, e.g. "Spanish (es)".
func Label(code string) string {
	if code == Auto {
		return "auto-detect"
	}

	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return fmt.Sprintf("language '%s'", code)
	}

	name := display.English.Tags().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return fmt.Sprintf("language '%s'", code)
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// Codes returns all supported codes (excluding Auto)
func Codes() []string {
	return slices.Clone(codes)
}
