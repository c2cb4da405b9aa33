// Package parser turns flattened ISAPI documents into the typed records in pkg/models.
package parser

import (
	"fmt"
	"time"

	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/HaydarovAkbar/HikVision/pkg/models"
	"go.uber.org/multierr"
)

// Parser stamps every record it produces with the time reported by Now.
type Parser struct {
	Now func() time.Time
}

func New() *Parser {
	return &Parser{Now: time.Now}
}

func (p *Parser) timestamp() string {
	now := time.Now
	if p != nil && p.Now != nil {
		now = p.Now
	}
	return now().Format(time.RFC3339)
}

// ParseDeviceInfo reads the DeviceInfo element of a device info document. A document
// without one yields a record that only carries the timestamp.
func (p *Parser) ParseDeviceInfo(n xmltree.Node) (models.DeviceInfo, error) {
	info := models.DeviceInfo{Timestamp: p.timestamp()}
	doc, err := asMap(n, "document")
	if err != nil || !doc.has("DeviceInfo") {
		return info, err
	}

	d := doc.child("DeviceInfo")
	info.DeviceName = d.str("deviceName")
	info.DeviceID = d.str("deviceID")
	info.Model = d.str("model")
	info.SerialNumber = d.str("serialNumber")
	info.FirmwareVersion = d.str("firmwareVersion")
	info.MacAddress = d.str("macAddress")
	info.IPAddress = d.str("ipAddress")
	info.Manufacturer = d.strOr("manufacturer", models.DefaultManufacturer)
	info.DeviceType = d.str("deviceType")
	doc.absorb(d)
	return info, doc.err
}

// ParseChannels reads video input channels. n may be the channel list itself, a single
// channel or the whole VideoInputChannelList document. Elements that fail to convert are
// left out and reported in the returned error.
func (p *Parser) ParseChannels(n xmltree.Node) ([]models.Channel, error) {
	ts := p.timestamp()
	out := []models.Channel{}
	var errs error
	for i, el := range elements(n, "VideoInputChannelList", "VideoInputChannel") {
		f, err := asMap(el, fmt.Sprintf("channel[%d]", i))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ch := models.Channel{
			Timestamp:   ts,
			ChannelID:   f.str("id"),
			ChannelName: f.str("channelName"),
			Enabled:     f.boolean("enabled"),
			InputPort:   f.str("inputPort"),
			VideoFormat: f.str("videoFormat"),
		}
		if f.has("resolutionHeight") {
			ch.ResolutionHeight = f.integer("resolutionHeight")
		}
		if f.has("resolutionWidth") {
			ch.ResolutionWidth = f.integer("resolutionWidth")
		}
		if f.err != nil {
			errs = multierr.Append(errs, f.err)
			continue
		}
		out = append(out, ch)
	}
	return out, errs
}

// ParseStreamingChannels reads streaming channel configurations. Like ParseChannels it
// accepts the list, a single element or the StreamingChannelList document.
func (p *Parser) ParseStreamingChannels(n xmltree.Node) ([]models.StreamingChannel, error) {
	ts := p.timestamp()
	out := []models.StreamingChannel{}
	var errs error
	for i, el := range elements(n, "StreamingChannelList", "StreamingChannel") {
		f, err := asMap(el, fmt.Sprintf("streaming_channel[%d]", i))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sc := models.StreamingChannel{
			Timestamp: ts,
			ChannelID: f.str("id"),
			Enabled:   f.boolean("enabled"),
		}
		if f.has("Transport") {
			t := f.child("Transport")
			sc.TransportProtocol = t.str("Protocol")
			f.absorb(t)
		}
		if f.has("Video") {
			v := f.child("Video")
			sc.VideoCodecType = v.str("videoCodecType")
			sc.VideoBitrate = v.integer("maxBitrate")
			sc.VideoFrameRate = v.integer("videoFrameRate")
			sc.VideoResolution = v.strOr("videoResolutionWidth", "0") + "x" + v.strOr("videoResolutionHeight", "0")
			f.absorb(v)
		}
		if f.has("Audio") {
			a := f.child("Audio")
			sc.AudioCodecType = a.str("audioCompressionType")
			sc.AudioBitrate = a.integer("audioBitRate")
			f.absorb(a)
		}
		if f.err != nil {
			errs = multierr.Append(errs, f.err)
			continue
		}
		out = append(out, sc)
	}
	return out, errs
}

// ParsePTZInfo reads a PTZ capabilities document. Without a PTZData element the record
// reports PTZ as unsupported.
func (p *Parser) ParsePTZInfo(n xmltree.Node) (models.PTZInfo, error) {
	info := models.PTZInfo{Timestamp: p.timestamp()}
	doc, err := asMap(n, "document")
	if err != nil {
		return info, err
	}
	doc = underRoot(doc, "PTZData")
	if !doc.has("PTZData") {
		return info, nil
	}

	d := doc.child("PTZData")
	info.PTZSupported = true
	info.PanSupported = d.boolean("pan")
	info.TiltSupported = d.boolean("tilt")
	info.ZoomSupported = d.boolean("zoom")
	info.PresetSupported = d.boolean("presetSupport")
	info.PatrolSupported = d.boolean("patrolSupport")
	doc.absorb(d)
	return info, doc.err
}

// asMap wraps n for field access. A missing node reads as an empty element.
func asMap(n xmltree.Node, path string) (*fields, error) {
	switch v := n.(type) {
	case nil:
		return newFields(nil, path), nil
	case *xmltree.Map:
		return newFields(v, path), nil
	}
	return nil, &SchemaMismatchError{Path: path, Want: "element", Got: kind(n)}
}

// underRoot descends into the document root when key is not at the top level.
func underRoot(f *fields, key string) *fields {
	if f.has(key) || f.m.Len() != 1 {
		return f
	}
	root := f.m.Keys()[0]
	if c, ok := f.m.Child(root); ok && c.Len() > 0 {
		if _, found := c.Get(key); found {
			return f.child(root)
		}
	}
	return f
}

// elements normalizes the inputs accepted by the list transforms to a slice.
func elements(n xmltree.Node, listKey, itemKey string) []xmltree.Node {
	switch v := n.(type) {
	case nil:
		return nil
	case xmltree.List:
		return v
	case *xmltree.Map:
		if list, ok := v.Child(listKey); ok {
			return list.Items(itemKey)
		}
		if _, ok := v.Get(itemKey); ok {
			return v.Items(itemKey)
		}
		if v.Len() == 0 {
			return nil
		}
		return []xmltree.Node{v}
	}
	return []xmltree.Node{n}
}
