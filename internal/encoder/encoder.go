// Package encoder declares the text-embedding boundary the similarity
// retriever consumes. Model inference itself stays out of scope; only the
// interface and a deterministic stand-in live here.
package encoder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Deterministic hashes the input text into a reproducible unit-norm
// vector. It stands in for a real embedding model in environments where
// none is wired up, and is useful in tests that need stable vectors
// without a network call.
type Deterministic struct{}

func NewDeterministic() *Deterministic { return &Deterministic{} }

func (d *Deterministic) Encode(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	vec := make([]float32, models.EmbeddingDim)
	if text == "" {
		return vec, nil
	}

	seed := sha256.Sum256([]byte(text))
	state := binary.BigEndian.Uint64(seed[:8])
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// Map the upper bits to a signed float in [-1, 1].
		vec[i] = float32(int64(state>>40)-(1<<23)) / float32(1<<23)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// embedRequest/embedResponse are the HTTPBridge wire shapes: a single
// text in, a single flat vector out.
type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// HTTPBridge shapes the network call to an out-of-process embedding
// model: a small JSON POST plus response decode, nothing more — the
// model itself stays out of scope, same boundary the teacher draws
// around its own model inference in internal/ml/image_embedding.go.
type HTTPBridge struct {
	url        string
	httpClient *http.Client
}

func NewHTTPBridge(url string, timeout time.Duration) *HTTPBridge {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPBridge{url: url, httpClient: &http.Client{Timeout: timeout}}
}

func (b *HTTPBridge) Encode(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}

	var decoded embedResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(decoded.Embedding) != models.EmbeddingDim {
		return nil, fmt.Errorf("embed service returned dimension %d, want %d", len(decoded.Embedding), models.EmbeddingDim)
	}

	return decoded.Embedding, nil
}
