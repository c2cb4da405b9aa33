package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HaydarovAkbar/HikVision/internal/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	doorID  int
	doorCmd string
)

// Parent Command
var doorsCmd = &cobra.Command{
	Use:   "doors",
	Short: "Show door status or operate doors",
}

var doorsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a door",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		doc, err := api.GetDoorStatus(cmd.Context(), doorID)
		if err != nil {
			fail("Error fetching door %d status: %s", doorID, explain(err))
		}
		printJSON(doc)
	},
}

var doorsControlCmd = &cobra.Command{
	Use:   "control",
	Short: "Open, close or lock a door",
	Example: `  hikvision-cli doors control --id 1 --cmd open
  hikvision-cli doors control --id 2 --cmd always_close`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		command := client.DoorCommand(strings.ToLower(doorCmd))

		fmt.Printf("Sending '%s' to door %d...\n", command, doorID)
		if err := api.ControlDoor(cmd.Context(), doorID, command); err != nil {
			if errors.Is(err, client.ErrInvalidDoorCommand) {
				fail("Error: %v (use open, close, always_open or always_close)", err)
			}
			fail("Error controlling door: %s", explain(err))
		}
		color.Green("Success.")
	},
}

func init() {
	rootCmd.AddCommand(doorsCmd)
	doorsCmd.AddCommand(doorsStatusCmd)
	doorsCmd.AddCommand(doorsControlCmd)

	for _, c := range []*cobra.Command{doorsStatusCmd, doorsControlCmd} {
		c.Flags().IntVar(&doorID, "id", 1, "Door number")
	}
	doorsControlCmd.Flags().StringVar(&doorCmd, "cmd", "", "Command: open, close, always_open, always_close")
	_ = doorsControlCmd.MarkFlagRequired("cmd")
}
