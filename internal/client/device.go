package client

import (
	"context"
	"net/http"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
)

// GetDeviceInfo fetches /ISAPI/System/deviceInfo
func (c *HikvisionClient) GetDeviceInfo(ctx context.Context) (*xmltree.Map, error) {
	return c.Request(ctx, http.MethodGet, config.ResourceDeviceInfo)
}

// GetCapabilities fetches the device capability document.
func (c *HikvisionClient) GetCapabilities(ctx context.Context) (*xmltree.Map, error) {
	return c.Request(ctx, http.MethodGet, config.ResourceCapabilities)
}

func (c *HikvisionClient) GetTimeConfig(ctx context.Context) (*xmltree.Map, error) {
	return c.Request(ctx, http.MethodGet, config.ResourceTimeConfig)
}

func (c *HikvisionClient) GetNetworkConfig(ctx context.Context) (*xmltree.Map, error) {
	return c.Request(ctx, http.MethodGet, config.ResourceNetworkConfig)
}

// Ping checks connectivity and credentials by fetching the device info document.
func (c *HikvisionClient) Ping(ctx context.Context) error {
	doc, err := c.GetDeviceInfo(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.Get("DeviceInfo"); !ok {
		return ErrNotDeviceInfo
	}
	c.log.WithField("host", c.Config.Host).Info("connected to hikvision device")
	return nil
}
