package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"

	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

const hfInferenceBaseURL = "https://api-inference.huggingface.co/models/"

// HFImageClient renders illustrations through the Hugging Face inference
// API. Models is an ordered fallback list: the first model that produces an
// image wins, mirroring how text providers rotate credentials.
type HFImageClient struct {
	models []string
	apiKey string
	client *http.Client
}

func NewHFImageClient(models []string, apiKey string) *HFImageClient {
	return &HFImageClient{models: models, apiKey: apiKey, client: &http.Client{}}
}

func (c *HFImageClient) TextToImage(ctx context.Context, prompt string) ([]byte, error) {
	if len(c.models) == 0 {
		return nil, errors.New("no image models configured")
	}

	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, model := range c.models {
		img, err := c.tryModel(ctx, model, body)
		if err == nil {
			return img, nil
		}
		lastErr = err
		Logger.Log.Errorf("image model %s failed: %v", model, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, errors.Wrap(lastErr, "all image models exhausted")
}

func (c *HFImageClient) tryModel(ctx context.Context, model string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", hfInferenceBaseURL+model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return nil, errors.Errorf("image inference non-200 http code: %d, body: %s", res.StatusCode, truncate(string(data), 256))
	}
	if len(data) == 0 {
		return nil, errors.New("image inference returned an empty body")
	}
	return data, nil
}
