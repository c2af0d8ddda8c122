package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const apiBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Illustrate renders one visual prompt into a single image and returns
// it as a data URL, ready for the carousel and the snapshot. The genai
// SDK has no Imagen surface, so this goes through the REST predict
// endpoint directly.
func (c *Client) Illustrate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"instances": []map[string]any{
			{"prompt": prompt},
		},
		"parameters": map[string]any{
			"sampleCount": 1,
			"aspectRatio": "16:9",
		},
	}

	var resp struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}
	if err := c.post(ctx, c.imageModel+":predict", reqBody, &resp); err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return "", fmt.Errorf("image generation: no image returned")
	}

	mime := resp.Predictions[0].MimeType
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, resp.Predictions[0].BytesBase64Encoded), nil
}

// post sends a JSON request to the Gemini REST API and decodes the
// JSON reply into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
