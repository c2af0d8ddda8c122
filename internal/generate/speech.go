package generate

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Synthesize turns narration text into raw PCM (24 kHz mono s16le) via
// the Gemini TTS REST endpoint.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": text}}},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]any{
				"voiceConfig": map[string]any{
					"prebuiltVoiceConfig": map[string]any{"voiceName": "Charon"},
				},
			},
		},
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData struct {
						Data string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := c.post(ctx, c.speechModel+":generateContent", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("speech synthesis: no audio returned")
	}

	pcm, err := base64.StdEncoding.DecodeString(resp.Candidates[0].Content.Parts[0].InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: decoding payload: %w", err)
	}
	return pcm, nil
}
