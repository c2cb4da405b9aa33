package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/parser"
	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Variables to hold flag values
var (
	expPort       string
	expPTZChannel int
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	server    *http.Server
	collector *parser.Collector
	ping      func(context.Context) error
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	go p.run()
	return nil
}

func (p *program) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := p.ping(ctx); err != nil {
		// Keep serving: hikvision_up reports the device as down until it answers.
		logrus.WithError(err).Error("initial connectivity check failed")
	} else {
		logrus.Info("initial connectivity check succeeded")
	}
	cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(&HikvisionCollector{Collector: p.collector, Timeout: 20 * time.Second})

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: logrus.StandardLogger(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", expPort)
	p.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.Infof("HikVision exporter listening on %s", addr)

	if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("HTTP server error")
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	logrus.Info("stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("server forced to shutdown")
		}
	}
	return nil
}

// --- COLLECTOR ---

// HikvisionCollector exposes one collection run per scrape.
type HikvisionCollector struct {
	Collector *parser.Collector
	Timeout   time.Duration
	Mutex     sync.Mutex
}

var (
	upDesc = prometheus.NewDesc(
		"hikvision_up", "Whether the device answered the device info request.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"hikvision_scrape_duration_seconds", "Time taken to collect from the device.", nil, nil,
	)
	deviceInfoDesc = prometheus.NewDesc(
		"hikvision_device_info", "Device identity, always 1.",
		[]string{"device_name", "model", "serial_number", "firmware_version"}, nil,
	)
	channelUpDesc = prometheus.NewDesc(
		"hikvision_channel_enabled", "Whether a video input channel is enabled.", []string{"channel_id", "channel_name"}, nil,
	)
	channelCountDesc = prometheus.NewDesc(
		"hikvision_channels_total", "Video input channels grouped by state.", []string{"state"}, nil,
	)
	streamBitrateDesc = prometheus.NewDesc(
		"hikvision_streaming_channel_max_bitrate_kbps", "Configured maximum video bitrate.",
		[]string{"channel_id", "codec", "resolution"}, nil,
	)
	streamEnabledDesc = prometheus.NewDesc(
		"hikvision_streaming_channel_enabled", "Whether a streaming channel is enabled.", []string{"channel_id"}, nil,
	)
	ptzSupportedDesc = prometheus.NewDesc(
		"hikvision_ptz_supported", "Whether the collected channel reports PTZ capabilities.", nil, nil,
	)
	collectFailuresDesc = prometheus.NewDesc(
		"hikvision_collect_failed", "Resources that could not be collected in the last scrape.", []string{"resource"}, nil,
	)
)

func (c *HikvisionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- deviceInfoDesc
	ch <- channelUpDesc
	ch <- channelCountDesc
	ch <- streamBitrateDesc
	ch <- streamEnabledDesc
	ch <- ptzSupportedDesc
	ch <- collectFailuresDesc
}

func (c *HikvisionCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	info := c.Collector.Collect(ctx)

	up := 1.0
	for _, f := range info.Failures {
		if f.Resource == config.ResourceDeviceInfo {
			up = 0
		}
		ch <- prometheus.MustNewConstMetric(collectFailuresDesc, prometheus.GaugeValue, 1, f.Resource)
	}

	if up == 1 {
		d := info.DeviceInfo
		ch <- prometheus.MustNewConstMetric(deviceInfoDesc, prometheus.GaugeValue, 1,
			d.DeviceName, d.Model, d.SerialNumber, d.FirmwareVersion)
	}

	// Per-channel series need a unique, non-empty id; the totals still count every channel.
	states := map[string]float64{"enabled": 0, "disabled": 0}
	seen := map[string]bool{}
	for _, channel := range info.Channels {
		if channel.Enabled {
			states["enabled"]++
		} else {
			states["disabled"]++
		}
		if channel.ChannelID == "" || seen[channel.ChannelID] {
			logrus.WithField("channel_id", channel.ChannelID).Debug("skipping channel series without a unique id")
			continue
		}
		seen[channel.ChannelID] = true
		ch <- prometheus.MustNewConstMetric(channelUpDesc, prometheus.GaugeValue, boolValue(channel.Enabled), channel.ChannelID, channel.ChannelName)
	}
	for st, cnt := range states {
		ch <- prometheus.MustNewConstMetric(channelCountDesc, prometheus.GaugeValue, cnt, st)
	}

	seen = map[string]bool{}
	for _, sc := range info.StreamingChannels {
		if sc.ChannelID == "" || seen[sc.ChannelID] {
			logrus.WithField("channel_id", sc.ChannelID).Debug("skipping streaming channel series without a unique id")
			continue
		}
		seen[sc.ChannelID] = true
		ch <- prometheus.MustNewConstMetric(streamEnabledDesc, prometheus.GaugeValue, boolValue(sc.Enabled), sc.ChannelID)
		ch <- prometheus.MustNewConstMetric(streamBitrateDesc, prometheus.GaugeValue, float64(sc.VideoBitrate),
			sc.ChannelID, sc.VideoCodecType, sc.VideoResolution)
	}

	ch <- prometheus.MustNewConstMetric(ptzSupportedDesc, prometheus.GaugeValue, boolValue(info.PTZInfo.PTZSupported))
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus Exporter service",
	Long: `Starts a long-running HTTP server that exposes HikVision device metrics.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		api := setupClient()

		svcConfig := &service.Config{
			Name:        "hikvision-exporter",
			DisplayName: "HikVision Prometheus Exporter",
			Description: "Exposes HikVision ISAPI device metrics to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{
				"exporter",
				"--port", expPort,
				"--ptz-channel", fmt.Sprint(expPTZChannel),
			},
		}
		if used := viper.ConfigFileUsed(); used != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", used)
		}

		collector := parser.NewCollector(api, logrus.StandardLogger())
		collector.PTZChannel = expPTZChannel
		prg := &program{
			collector: collector,
			ping:      api.Ping,
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			logrus.Fatal(err)
		}

		// Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" && viper.ConfigFileUsed() == "" {
				logrus.Warn("no config file in use; the service will only see defaults and its environment")
			}

			err = service.Control(s, serviceAction)
			if err != nil {
				logrus.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// Run the Service (Blocking)
		logger, err := s.Logger(nil)
		if err != nil {
			logrus.Fatal(err)
		}
		if err = s.Run(); err != nil {
			_ = logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVar(&expPort, "port", "9100", "Port to listen on")
	exporterCmd.Flags().IntVar(&expPTZChannel, "ptz-channel", 1, "Channel whose PTZ capabilities are exported")
	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
