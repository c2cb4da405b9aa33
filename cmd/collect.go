package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/HaydarovAkbar/HikVision/internal/client"
	"github.com/HaydarovAkbar/HikVision/internal/export"
	"github.com/HaydarovAkbar/HikVision/internal/parser"
	"github.com/HaydarovAkbar/HikVision/pkg/models"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var collectPTZChannel int

// connectError is a failed connectivity check before collection.
type connectError struct {
	cause error
}

func (e *connectError) Error() string {
	return fmt.Sprintf("could not connect to the device: %v", e.cause)
}

func (e *connectError) Unwrap() error {
	return e.cause
}

type collectOptions struct {
	OutputDir  string
	PTZChannel int
	Now        time.Time
	Out        io.Writer // per-file report lines
	Progress   io.Writer // progress bar, nil disables it
	Log        logrus.FieldLogger
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect device, channel and PTZ information and export it",
	Long: `Checks connectivity, gathers device info, video input channels, streaming
channels and PTZ capabilities, then writes a JSON snapshot and CSV tables
into the output directory.`,
	Example: `  hikvision-cli collect
  hikvision-cli collect --output-dir /var/lib/hikvision --ptz-channel 2`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()
		ctx := cmd.Context()

		fmt.Printf("Connecting to %s ...\n", api.Config.BaseURL())
		info, err := runCollect(ctx, api, collectOptions{
			OutputDir:  api.Config.OutputDir,
			PTZChannel: collectPTZChannel,
			Now:        time.Now(),
			Out:        os.Stdout,
			Progress:   os.Stderr,
			Log:        logrus.StandardLogger(),
		})
		if err != nil {
			var cerr *connectError
			if errors.As(err, &cerr) {
				printConnectHelp(os.Stdout, cerr)
				os.Exit(1)
			}
			if ctx.Err() != nil {
				return
			}
			fail("Error: %v", err)
		}

		if jsonOutput {
			printJSON(info)
			return
		}
		printSummary(os.Stdout, info)
	},
}

// runCollect checks connectivity, collects every resource and writes the JSON snapshot plus
// a CSV per non-empty channel table. Export failures are reported to opts.Out and do not
// fail the run.
func runCollect(ctx context.Context, api *client.HikvisionClient, opts collectOptions) (*models.SystemInfo, error) {
	if err := api.Ping(ctx); err != nil {
		return nil, &connectError{cause: err}
	}
	color.New(color.FgGreen).Fprintln(opts.Out, "Connected.")

	collector := parser.NewCollector(api, opts.Log)
	collector.PTZChannel = opts.PTZChannel
	if opts.Progress != nil {
		bar := progressbar.NewOptions(4,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Collecting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		collector.Done = func(string) { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}
	info := collector.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.Log.WithField("run_id", info.RunID).Debug("collection finished")

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	ts := opts.Now.Format("20060102_150405")
	exports := []struct {
		path  string
		rows  int
		write func(path string) error
	}{
		{filepath.Join(opts.OutputDir, "hikvision_data_"+ts+".json"), -1, func(p string) error { return export.JSON(p, info) }},
		{filepath.Join(opts.OutputDir, "hikvision_channels_"+ts+".csv"), len(info.Channels), func(p string) error { return export.CSV(p, info.Channels) }},
		{filepath.Join(opts.OutputDir, "hikvision_streaming_"+ts+".csv"), len(info.StreamingChannels), func(p string) error { return export.CSV(p, info.StreamingChannels) }},
	}

	var errs error
	attempted := 0
	for _, e := range exports {
		if e.rows == 0 {
			opts.Log.WithField("path", e.path).Debug("no records, skipping csv export")
			continue
		}
		attempted++
		if err := e.write(e.path); err != nil {
			color.New(color.FgYellow).Fprintf(opts.Out, "Failed to export %s: %v\n", e.path, err)
			errs = multierr.Append(errs, err)
			continue
		}
		color.New(color.FgGreen).Fprintf(opts.Out, "Saved %s\n", e.path)
	}
	if errs != nil {
		opts.Log.WithError(errs).Warnf("%d of %d exports failed", len(multierr.Errors(errs)), attempted)
	}
	return info, nil
}

func printConnectHelp(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "%v\n", err)
	fmt.Fprintln(w, "Please check:")
	fmt.Fprintln(w, "  1. The device IP address is correct")
	fmt.Fprintln(w, "  2. The username and password are correct")
	fmt.Fprintln(w, "  3. The network connection to the device")
	fmt.Fprintln(w, "  4. The port number and protocol (http/https)")
}

func printSummary(out io.Writer, info *models.SystemInfo) {
	ptz := "No"
	if info.PTZInfo.PTZSupported {
		ptz = "Yes"
	}

	fmt.Fprintln(out)
	color.New(color.Bold).Fprintln(out, "Device summary")
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Device Name\t%s\n", info.DeviceInfo.DeviceName)
	fmt.Fprintf(w, "Model\t%s\n", info.DeviceInfo.Model)
	fmt.Fprintf(w, "Serial Number\t%s\n", info.DeviceInfo.SerialNumber)
	fmt.Fprintf(w, "Firmware\t%s\n", info.DeviceInfo.FirmwareVersion)
	fmt.Fprintf(w, "IP Address\t%s\n", info.DeviceInfo.IPAddress)
	fmt.Fprintf(w, "Channels\t%d (%d active)\n", len(info.Channels), info.ActiveChannels())
	fmt.Fprintf(w, "Streaming Channels\t%d (%d active)\n", len(info.StreamingChannels), info.ActiveStreamingChannels())
	fmt.Fprintf(w, "PTZ Supported\t%s\n", ptz)
	w.Flush()

	for _, f := range info.Failures {
		color.New(color.FgYellow).Fprintf(out, "Could not collect %s: %s\n", f.Resource, f.Error)
	}
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().String("output-dir", "output", "Directory for exported files")
	collectCmd.Flags().IntVar(&collectPTZChannel, "ptz-channel", 1, "Channel whose PTZ capabilities are collected")
	_ = viper.BindPFlag("output_dir", collectCmd.Flags().Lookup("output-dir"))
}
