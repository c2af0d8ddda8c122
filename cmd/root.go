package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jonchampaigne/ScarSignal/internal/audio"
	"github.com/jonchampaigne/ScarSignal/internal/config"
	"github.com/jonchampaigne/ScarSignal/internal/engine"
	"github.com/jonchampaigne/ScarSignal/internal/generate"
	"github.com/jonchampaigne/ScarSignal/internal/models"
	"github.com/jonchampaigne/ScarSignal/internal/store"
	"github.com/jonchampaigne/ScarSignal/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:          "scarsignal",
	Short:        "A generative survival story played through a salvaged terminal",
	SilenceUsage: true,
	RunE:         runGame,
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGame(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}

	// The TUI owns stdout, so diagnostics go to a file.
	logFile, err := tea.LogToFile(filepath.Join(cfg.DataDir, "scarsignal.log"), "scarsignal")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	client, err := generate.NewClient(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.ImageModel, cfg.SpeechModel)
	if err != nil {
		return fmt.Errorf("connecting to Gemini: %w", err)
	}
	defer client.Close()

	state, err := st.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			return err
		}
		state = models.NewSessionState()
	}

	eng := engine.New(state, st, client, client, client, audio.NewManager(audio.OpenOtoSink))

	// Fault boundary: an otherwise-unhandled failure is captured into
	// the persisted log as a side channel, so the next launch surfaces
	// the crash context. Soft recovery is relaunching (data kept); hard
	// recovery is `scarsignal wipe`.
	defer func() {
		if r := recover(); r != nil {
			if cerr := st.AppendCrashEntry(fmt.Sprintf("%v", r)); cerr != nil {
				fmt.Fprintf(os.Stderr, "could not record fault: %v\n", cerr)
			}
			fmt.Fprintf(os.Stderr, "scarsignal hit a fault: %v\n", r)
			fmt.Fprintln(os.Stderr, "relaunch to pick the session back up, or run 'scarsignal wipe' to start over")
			err = fmt.Errorf("unrecovered fault: %v", r)
		}
	}()

	return tui.Run(eng)
}
