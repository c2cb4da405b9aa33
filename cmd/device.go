package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/HaydarovAkbar/HikVision/internal/client"
	"github.com/HaydarovAkbar/HikVision/internal/parser"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Query device information and configuration",
}

var deviceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show model, serial number and firmware",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		doc, err := api.GetDeviceInfo(cmd.Context())
		if err != nil {
			fail("Error fetching device info: %s", explain(err))
		}
		info, err := parser.New().ParseDeviceInfo(doc)
		if err != nil {
			fail("Error reading device info: %v", err)
		}

		if jsonOutput {
			printJSON(info)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FIELD\tVALUE")
		fmt.Fprintln(w, "-----\t-----")
		fmt.Fprintf(w, "Name\t%s\n", info.DeviceName)
		fmt.Fprintf(w, "ID\t%s\n", info.DeviceID)
		fmt.Fprintf(w, "Model\t%s\n", info.Model)
		fmt.Fprintf(w, "Type\t%s\n", info.DeviceType)
		fmt.Fprintf(w, "Serial\t%s\n", info.SerialNumber)
		fmt.Fprintf(w, "Firmware\t%s\n", info.FirmwareVersion)
		fmt.Fprintf(w, "MAC\t%s\n", info.MacAddress)
		fmt.Fprintf(w, "Manufacturer\t%s\n", info.Manufacturer)
		w.Flush()
	},
}

// documentCmd prints a raw ISAPI document, flattened, as JSON.
func documentCmd(use, short string, get func(*client.HikvisionClient, context.Context) (*xmltree.Map, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			api := setupClient()
			doc, err := get(api, cmd.Context())
			if err != nil {
				fail("Error fetching %s: %s", use, explain(err))
			}
			printJSON(doc)
		},
	}
}

func init() {
	rootCmd.AddCommand(deviceCmd)

	deviceCmd.AddCommand(deviceInfoCmd)
	deviceCmd.AddCommand(documentCmd("capabilities", "Show the device capability document", (*client.HikvisionClient).GetCapabilities))
	deviceCmd.AddCommand(documentCmd("time", "Show the time configuration", (*client.HikvisionClient).GetTimeConfig))
	deviceCmd.AddCommand(documentCmd("network", "Show the network interface configuration", (*client.HikvisionClient).GetNetworkConfig))
}
