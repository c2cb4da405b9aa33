package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
)

// GetChannels lists the video input channels, if the device has any.
func (c *HikvisionClient) GetChannels(ctx context.Context) (xmltree.List, error) {
	doc, err := c.Request(ctx, http.MethodGet, config.ResourceChannels)
	if err != nil {
		return nil, err
	}
	return listItems(doc, "VideoInputChannelList", "VideoInputChannel"), nil
}

// GetStreamingChannels lists the streaming channel configurations.
func (c *HikvisionClient) GetStreamingChannels(ctx context.Context) (xmltree.List, error) {
	doc, err := c.Request(ctx, http.MethodGet, config.ResourceStreaming)
	if err != nil {
		return nil, err
	}
	return listItems(doc, "StreamingChannelList", "StreamingChannel"), nil
}

// GetPTZInfo fetches {ptz}/{channel}/capabilities.
func (c *HikvisionClient) GetPTZInfo(ctx context.Context, channel int) (*xmltree.Map, error) {
	return c.Request(ctx, http.MethodGet, config.ResourcePTZ,
		WithPathSegment(strconv.Itoa(channel)),
		WithPathSegment("capabilities"),
	)
}
