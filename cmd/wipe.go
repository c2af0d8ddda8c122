package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonchampaigne/ScarSignal/internal/config"
	"github.com/jonchampaigne/ScarSignal/internal/store"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the saved session without entering the game",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := store.New(cfg.DataDir)
		if err != nil {
			return err
		}

		if !wipeForce {
			fmt.Print("This deletes the saved session permanently. Continue? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := st.Wipe(); err != nil {
			return err
		}
		fmt.Println("Session wiped.")
		return nil
	},
}

func init() {
	wipeCmd.Flags().BoolVarP(&wipeForce, "force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(wipeCmd)
}
