package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	cache "kala-setu/internal/infrastructure/cache/port"
	"kala-setu/internal/infrastructure/translation/port"
)

// Gateway is the port.Translator used by the chat use cases. Blank text and
// same-language pairs never reach the backend; any backend failure falls back
// to the original text. Successful lookups are cached when a cache is set.
type Gateway struct {
	backend port.Backend
	cache   cache.Cache
	ttl     time.Duration
	log     *zap.Logger
}

// NewGateway wires a backend with an optional cache (nil disables caching).
func NewGateway(backend port.Backend, c cache.Cache, ttl time.Duration, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{backend: backend, cache: c, ttl: ttl, log: log.Named("translate")}
}

var _ port.Translator = (*Gateway)(nil)

func (g *Gateway) Translate(ctx context.Context, text, sourceLang, targetLang string) string {
	if strings.TrimSpace(text) == "" || sourceLang == targetLang {
		return text
	}

	key := cacheKey(text, sourceLang, targetLang)
	if g.cache != nil {
		hit, err := g.cache.Get(ctx, key)
		if err == nil {
			return hit
		}
		if !errors.Is(err, cache.ErrMiss) {
			g.log.Warn("cache get failed", zap.Error(err))
		}
	}

	out, err := g.backend.Lookup(ctx, text, sourceLang, targetLang)
	if err != nil {
		g.log.Warn("translation failed, using original",
			zap.String("source", sourceLang),
			zap.String("target", targetLang),
			zap.Error(err),
		)
		return text
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, out, g.ttl); err != nil {
			g.log.Warn("cache set failed", zap.Error(err))
		}
	}
	return out
}

func cacheKey(text, sourceLang, targetLang string) string {
	sum := sha256.Sum256([]byte(text))
	return "tr:" + sourceLang + ":" + targetLang + ":" + hex.EncodeToString(sum[:])
}
