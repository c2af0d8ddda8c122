// Command simulate plays ScarSignal headlessly, with a second Gemini
// model acting as the player. Useful for smoke-testing the turn loop
// and prompt quality without the TUI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonchampaigne/ScarSignal/internal/config"
	"github.com/jonchampaigne/ScarSignal/internal/engine"
	"github.com/jonchampaigne/ScarSignal/internal/generate"
	"github.com/jonchampaigne/ScarSignal/internal/models"
	"github.com/jonchampaigne/ScarSignal/internal/store"
)

const maxTurns = 10

// silentAudio satisfies engine.Player without a device.
type silentAudio struct{}

func (silentAudio) Play(pcm []byte) error { return nil }
func (silentAudio) Stop()                 {}
func (silentAudio) SetVolume(v float64)   {}
func (silentAudio) SetMuted(b bool)       {}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		log.Fatalf("%v", err)
	}

	dir, err := os.MkdirTemp("", "scarsignal-sim-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.New(dir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	client, err := generate.NewClient(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.ImageModel, cfg.SpeechModel)
	if err != nil {
		log.Fatalf("Failed to create narrator: %v", err)
	}
	defer client.Close()

	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.TextModel)

	eng := engine.New(models.NewSessionState(), st, client, noImages{}, noSpeech{}, silentAudio{})

	fmt.Println("--- Turn 0: start ---")
	if _, err := eng.SubmitInput(ctx, "start"); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	printState(eng)

	for turn := 1; turn <= maxTurns; turn++ {
		snap := eng.Snapshot()
		if snap.Stats.Health <= 0 {
			fmt.Println("--- Signal lost, stopping ---")
			return
		}

		action := pickAction(ctx, playerModel, snap)
		fmt.Printf("--- Turn %d: %s ---\n", turn, action)
		if _, err := eng.SubmitInput(ctx, action); err != nil {
			log.Fatalf("Turn failed: %v", err)
		}
		printState(eng)
	}
}

// noImages skips illustration during simulation.
type noImages struct{}

func (noImages) Illustrate(ctx context.Context, prompt string) (string, error) {
	return "data:image/png;base64,", nil
}

// noSpeech skips narration during simulation.
type noSpeech struct{}

func (noSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte{0, 0}, nil
}

func pickAction(ctx context.Context, model *genai.GenerativeModel, snap models.SessionState) string {
	seg := snap.CurrentSegment
	if seg == nil || len(seg.Options) == 0 {
		return "look around"
	}

	var opts []string
	for i, o := range seg.Options {
		opts = append(opts, fmt.Sprintf("%d. %s", i+1, o.Label))
	}
	prompt := fmt.Sprintf(
		"You are playing a survival game. The situation:\n%s\n\nOptions:\n%s\n\nReply with ONLY the number of the option you choose.",
		seg.Narrative, strings.Join(opts, "\n"))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return seg.Options[0].Action
	}
	choice := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	return choice
}

func printState(eng *engine.Engine) {
	snap := eng.Snapshot()
	if seg := snap.CurrentSegment; seg != nil {
		fmt.Println(seg.Narrative)
	}
	fmt.Printf("health=%d wealth=%d xp=%d items=%d\n\n",
		snap.Stats.Health, snap.Stats.Wealth, snap.Stats.XP, len(snap.Inventory))
}
