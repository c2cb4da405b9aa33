package parser

import (
	"context"
	"sync"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/HaydarovAkbar/HikVision/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Source is the subset of the ISAPI client a collection run reads from.
type Source interface {
	GetDeviceInfo(ctx context.Context) (*xmltree.Map, error)
	GetChannels(ctx context.Context) (xmltree.List, error)
	GetStreamingChannels(ctx context.Context) (xmltree.List, error)
	GetPTZInfo(ctx context.Context, channel int) (*xmltree.Map, error)
}

// Collector gathers the device, channel, streaming and PTZ records into one SystemInfo.
type Collector struct {
	Source     Source
	Parser     *Parser
	PTZChannel int
	Log        logrus.FieldLogger
	// Done, when set, is called once per resource as its fetch finishes. Calls may overlap.
	Done func(resource string)
}

func NewCollector(src Source, log logrus.FieldLogger) *Collector {
	return &Collector{
		Source:     src,
		Parser:     New(),
		PTZChannel: 1,
		Log:        log,
	}
}

// Collect fetches every sub-resource concurrently. A sub-fetch that fails leaves its
// default record in place and is listed in Failures; Collect itself never fails.
func (c *Collector) Collect(ctx context.Context) *models.SystemInfo {
	info := &models.SystemInfo{
		RunID:             uuid.NewString(),
		Timestamp:         c.Parser.timestamp(),
		Channels:          []models.Channel{},
		StreamingChannels: []models.StreamingChannel{},
	}

	resources := []string{
		config.ResourceDeviceInfo,
		config.ResourceChannels,
		config.ResourceStreaming,
		config.ResourcePTZ,
	}
	errs := make([]error, len(resources))

	var wg sync.WaitGroup
	run := func(i int, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn()
			if c.Done != nil {
				c.Done(resources[i])
			}
		}()
	}

	run(0, func() error {
		doc, err := c.Source.GetDeviceInfo(ctx)
		if err != nil {
			info.DeviceInfo, _ = c.Parser.ParseDeviceInfo(nil)
			return err
		}
		info.DeviceInfo, err = c.Parser.ParseDeviceInfo(doc)
		return err
	})
	run(1, func() error {
		list, err := c.Source.GetChannels(ctx)
		if err != nil {
			return err
		}
		info.Channels, err = c.Parser.ParseChannels(list)
		return err
	})
	run(2, func() error {
		list, err := c.Source.GetStreamingChannels(ctx)
		if err != nil {
			return err
		}
		info.StreamingChannels, err = c.Parser.ParseStreamingChannels(list)
		return err
	})
	run(3, func() error {
		doc, err := c.Source.GetPTZInfo(ctx, c.PTZChannel)
		if err != nil {
			info.PTZInfo, _ = c.Parser.ParsePTZInfo(nil)
			return err
		}
		info.PTZInfo, err = c.Parser.ParsePTZInfo(doc)
		return err
	})
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if c.Log != nil {
			c.Log.WithField("resource", resources[i]).WithError(err).Warn("could not collect resource")
		}
		info.Failures = append(info.Failures, models.FetchFailure{
			Resource: resources[i],
			Error:    err.Error(),
		})
	}
	return info
}
