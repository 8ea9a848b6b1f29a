package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"kala-setu/internal/infrastructure/translation/port"
)

const maxResponseBytes = 1 << 20

// GoogleBackend queries the public translate_a/single endpoint (client=gtx).
// The response is a nested JSON array; the translated sentence segments are
// data[0][i][0].
type GoogleBackend struct {
	client  *http.Client
	baseURL string
}

func NewGoogleBackend(baseURL string, timeout time.Duration) *GoogleBackend {
	return &GoogleBackend{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

var _ port.Backend = (*GoogleBackend)(nil)

func (g *GoogleBackend) Lookup(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "translate: build request")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "translate: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "translate: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return parseSegments(body)
}

func parseSegments(body []byte) (string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", errors.Wrap(err, "translate: decode response")
	}
	if len(data) == 0 {
		return "", errors.New("translate: empty response")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(data[0], &segments); err != nil {
		return "", errors.Wrap(err, "translate: decode segments")
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part *string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			return "", errors.Wrap(err, "translate: decode segment")
		}
		if part != nil {
			b.WriteString(*part)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("translate: no segments")
	}
	return b.String(), nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
