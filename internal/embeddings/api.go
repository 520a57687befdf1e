package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Api calls an HTTP embedding service that accepts {"sentences": [...]} and
// answers with one vector per sentence.
type Api struct {
	url    string
	client *http.Client
}

func NewApi(url string) *Api {
	return &Api{url: url, client: &http.Client{Timeout: 60 * time.Second}}
}

func (e *Api) ModelName() string { return "api:" + e.url }

func (e *Api) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

// EmbedTexts embeds a batch in one request.
func (e *Api) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(&embedRequest{Sentences: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// ProbedApi returns an init that checks the service answers before the Api
// is handed out.
func ProbedApi(url string) InitFunc {
	return func(ctx context.Context) (Embedder, error) {
		e := NewApi(url)
		if _, err := e.Embed(ctx, "dill"); err != nil {
			return nil, fmt.Errorf("probe embedding service %s: %w", url, err)
		}
		return e, nil
	}
}
