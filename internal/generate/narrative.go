package generate

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/jonchampaigne/ScarSignal/internal/models"
)

//go:embed prompts/segment.txt
var segmentPrompt string

// Client holds the Gemini connection shared by the narrative,
// illustration and narration collaborators.
type Client struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	apiKey      string
	imageModel  string
	speechModel string
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, apiKey, textModel, imageModel, speechModel string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{
		client:      client,
		model:       client.GenerativeModel(textModel),
		apiKey:      apiKey,
		imageModel:  imageModel,
		speechModel: speechModel,
	}, nil
}

func (c *Client) Close() {
	c.client.Close()
}

// segmentPayload is the YAML shape the model is asked to produce.
type segmentPayload struct {
	Narrative     string              `yaml:"narrative"`
	VisualPrompts []string            `yaml:"visual_prompts"`
	Options       []models.Option     `yaml:"options"`
	StatUpdates   *models.StatUpdates `yaml:"stat_updates"`
	Loot          []models.Item       `yaml:"loot"`
}

// NextSegment requests one story segment. The model's reply is
// stripped of incidental code fencing and decoded as YAML; an
// undecodable reply fails the turn with a wrapped error, never a panic.
func (c *Client) NextSegment(ctx context.Context, req TurnRequest) (*models.StorySegment, error) {
	tmpl, err := template.New("segment").Parse(segmentPrompt)
	if err != nil {
		return nil, err
	}

	historyText := ""
	for _, seg := range req.Recent {
		historyText += fmt.Sprintf("Narrative: %s\n", seg.Narrative)
	}
	inventoryText := ""
	for _, it := range req.Inventory {
		inventoryText += fmt.Sprintf("- %s (x%d): %s\n", it.Name, it.Quantity, it.Description)
	}

	var buf bytes.Buffer
	data := struct {
		History   string
		Health    int
		Wealth    int
		XP        int
		Inventory string
		Action    string
	}{
		History:   historyText,
		Health:    req.Stats.Health,
		Wealth:    req.Stats.Wealth,
		XP:        req.Stats.XP,
		Inventory: inventoryText,
		Action:    req.Action,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(buf.String()))
	if err != nil {
		return nil, fmt.Errorf("narrative generation: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("narrative generation: no content returned")
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return nil, fmt.Errorf("narrative generation: unexpected response type")
	}

	return ParseSegment(string(text))
}

// ParseSegment decodes a model reply into a StorySegment, tolerating
// fenced code blocks around the payload. The segment receives a fresh
// id, which doubles as the staleness token for its background assets.
func ParseSegment(raw string) (*models.StorySegment, error) {
	clean := StripFences(raw)

	var payload segmentPayload
	if err := yaml.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("parsing segment payload: %w", err)
	}
	if payload.Narrative == "" {
		return nil, fmt.Errorf("parsing segment payload: empty narrative")
	}

	return &models.StorySegment{
		ID:            models.NewID(),
		Narrative:     payload.Narrative,
		VisualPrompts: payload.VisualPrompts,
		Options:       payload.Options,
		StatUpdates:   payload.StatUpdates,
		Loot:          payload.Loot,
	}, nil
}

// StripFences removes an incidental markdown code fence wrapping a
// payload (```yaml, ```json or a bare ```).
func StripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	for _, prefix := range []string{"```yaml", "```json", "```"} {
		if strings.HasPrefix(clean, prefix) {
			clean = strings.TrimPrefix(clean, prefix)
			break
		}
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}
