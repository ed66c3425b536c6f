package crawler

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

const languageSnippetWords = 100

// DetectLanguage returns the ISO 639-3 code of the text, or "" when detection
// is not reliable.
func DetectLanguage(title, description, content string) string {
	words := strings.Fields(content)
	if len(words) > languageSnippetWords {
		words = words[:languageSnippetWords]
	}
	text := strings.TrimSpace(title + " " + description + " " + strings.Join(words, " "))
	if text == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}
