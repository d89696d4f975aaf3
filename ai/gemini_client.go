package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient calls the Gemini REST API. One client is bound to one API
// key; rotation across keys is handled by CredentialPool constructing a
// client per credential.
type GeminiClient struct {
	model  string
	apiKey string
	client *http.Client
}

func NewGeminiClient(model string, apiKey string) *GeminiClient {
	return &GeminiClient{model: model, apiKey: apiKey, client: &http.Client{}}
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float32 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.WantJSON || req.Temperature != 0 {
		payload.GenerationConfig = &geminiGenerationConfig{Temperature: req.Temperature}
		if req.WantJSON {
			payload.GenerationConfig.ResponseMimeType = "application/json"
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiBaseURL, c.model, c.apiKey)
	res, err := c.post(ctx, uri, body)
	if err != nil {
		return "", err
	}

	parsed := geminiResponse{}
	if err := json.Unmarshal(res, &parsed); err != nil {
		return "", errors.Wrap(err, "fail to decode gemini response")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

type geminiEmbedRequest struct {
	Requests []geminiEmbedItem `json:"requests"`
}

type geminiEmbedItem struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Embed batches all texts into a single batchEmbedContents call.
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload := geminiEmbedRequest{}
	for _, text := range texts {
		payload.Requests = append(payload.Requests, geminiEmbedItem{
			Model:    "models/" + c.model,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: "CLUSTERING",
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uri := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", geminiBaseURL, c.model, c.apiKey)
	res, err := c.post(ctx, uri, body)
	if err != nil {
		return nil, err
	}

	parsed := geminiEmbedResponse{}
	if err := json.Unmarshal(res, &parsed); err != nil {
		return nil, errors.Wrap(err, "fail to decode gemini embeddings")
	}
	vectors := [][]float64{}
	for _, e := range parsed.Embeddings {
		vectors = append(vectors, e.Values)
	}
	if len(vectors) != len(texts) {
		return nil, errors.Errorf("expect %d embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

func (c *GeminiClient) post(ctx context.Context, uri string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, errors.Errorf("gemini non-200 http code: %d, body: %s", res.StatusCode, truncate(string(data), 512))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
