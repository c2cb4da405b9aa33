package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/HaydarovAkbar/HikVision/internal/parser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	channelOutput string
	channelFormat string
	ptzChannel    int
)

// Parent Command
var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Inspect video input and streaming channels",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List video input channels",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		list, err := api.GetChannels(cmd.Context())
		if err != nil {
			fail("Error fetching channels: %s", explain(err))
		}
		channels, err := parser.New().ParseChannels(list)
		if err != nil {
			logrus.WithError(err).Warn("some channels could not be read")
		}

		if channelOutput != "" {
			exportRecords(channelOutput, channelFormat, channels)
			return
		}

		if jsonOutput {
			printJSON(channels)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENABLED\tPORT\tFORMAT\tRESOLUTION")
		fmt.Fprintln(w, "--\t----\t-------\t----\t------\t----------")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%dx%d\n",
				ch.ChannelID,
				ch.ChannelName,
				ch.Enabled,
				ch.InputPort,
				ch.VideoFormat,
				ch.ResolutionWidth,
				ch.ResolutionHeight,
			)
		}
		w.Flush()
	},
}

var channelsStreamingCmd = &cobra.Command{
	Use:   "streaming",
	Short: "List streaming channel encoder settings",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		list, err := api.GetStreamingChannels(cmd.Context())
		if err != nil {
			fail("Error fetching streaming channels: %s", explain(err))
		}
		streams, err := parser.New().ParseStreamingChannels(list)
		if err != nil {
			logrus.WithError(err).Warn("some streaming channels could not be read")
		}

		if channelOutput != "" {
			exportRecords(channelOutput, channelFormat, streams)
			return
		}

		if jsonOutput {
			printJSON(streams)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tENABLED\tCODEC\tRESOLUTION\tFPS\tBITRATE\tAUDIO\tTRANSPORT")
		fmt.Fprintln(w, "--\t-------\t-----\t----------\t---\t-------\t-----\t---------")
		for _, sc := range streams {
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\t%d\t%s\t%s\n",
				sc.ChannelID,
				sc.Enabled,
				sc.VideoCodecType,
				sc.VideoResolution,
				sc.VideoFrameRate,
				sc.VideoBitrate,
				sc.AudioCodecType,
				sc.TransportProtocol,
			)
		}
		w.Flush()
	},
}

var channelsPTZCmd = &cobra.Command{
	Use:   "ptz",
	Short: "Show the PTZ capabilities of a channel",
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		doc, err := api.GetPTZInfo(cmd.Context(), ptzChannel)
		if err != nil {
			fail("Error fetching PTZ capabilities: %s", explain(err))
		}
		ptz, err := parser.New().ParsePTZInfo(doc)
		if err != nil {
			fail("Error reading PTZ capabilities: %v", err)
		}

		if jsonOutput {
			printJSON(ptz)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "PTZ\t%t\n", ptz.PTZSupported)
		fmt.Fprintf(w, "Pan\t%t\n", ptz.PanSupported)
		fmt.Fprintf(w, "Tilt\t%t\n", ptz.TiltSupported)
		fmt.Fprintf(w, "Zoom\t%t\n", ptz.ZoomSupported)
		fmt.Fprintf(w, "Presets\t%t\n", ptz.PresetSupported)
		fmt.Fprintf(w, "Patrols\t%t\n", ptz.PatrolSupported)
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.AddCommand(channelsListCmd)
	channelsCmd.AddCommand(channelsStreamingCmd)
	channelsCmd.AddCommand(channelsPTZCmd)

	for _, c := range []*cobra.Command{channelsListCmd, channelsStreamingCmd} {
		c.Flags().StringVarP(&channelOutput, "output", "o", "", "Export to a .json or .csv file")
		c.Flags().StringVar(&channelFormat, "format", "", "Export format (json or csv), defaults to the file extension")
	}
	channelsPTZCmd.Flags().IntVar(&ptzChannel, "channel", 1, "Channel number")
}
