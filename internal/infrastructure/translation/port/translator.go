package port

import "context"

// Translator turns text from one language into another. It never fails: when
// the text cannot be translated the original is returned.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) string
}

// Backend is a single remote lookup with no fallback or caching.
type Backend interface {
	Lookup(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
