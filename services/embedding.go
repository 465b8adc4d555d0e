package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"modaapi/models"
)

// EmbeddingProvider turns garment images and free text into fixed
// length vectors. The model behind it is opaque; only the vector
// contract matters here.
type EmbeddingProvider interface {
	EmbedImage(ctx context.Context, imageBytes []byte) ([]float64, error)
	EmbedText(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// ClipEmbeddingService calls the CLIP inference sidecar over JSON HTTP.
// Configured with EMBEDDING_SERVICE_URL.
type ClipEmbeddingService struct {
	BaseURL string
	Client  *http.Client
}

func NewClipEmbeddingService() *ClipEmbeddingService {
	return &ClipEmbeddingService{
		BaseURL: GetEnv("EMBEDDING_SERVICE_URL", "http://localhost:8091"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ClipEmbeddingService) Dimension() int {
	return models.EmbeddingDimension
}

type embedRequest struct {
	ImageBase64 string `json:"image_base64,omitempty"`
	Text        string `json:"text,omitempty"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (s *ClipEmbeddingService) EmbedImage(ctx context.Context, imageBytes []byte) ([]float64, error) {
	return s.embed(ctx, "/embed/image", embedRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(imageBytes),
	})
}

func (s *ClipEmbeddingService) EmbedText(ctx context.Context, text string) ([]float64, error) {
	return s.embed(ctx, "/embed/text", embedRequest{Text: text})
}

func (s *ClipEmbeddingService) embed(ctx context.Context, path string, payload embedRequest) ([]float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %v", err)
	}
	if len(parsed.Embedding) != models.EmbeddingDimension {
		return nil, fmt.Errorf("embedding service returned %d dimensions, expected %d",
			len(parsed.Embedding), models.EmbeddingDimension)
	}
	return parsed.Embedding, nil
}
