package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/HaydarovAkbar/HikVision/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const stamp = "2024-01-02T03:04:05Z"

func fixedParser() *Parser {
	return &Parser{Now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }}
}

func parseXML(t *testing.T, s string) *xmltree.Map {
	t.Helper()
	doc, err := xmltree.Parse([]byte(s))
	require.NoError(t, err)
	return doc
}

func mapOf(kv ...string) *xmltree.Map {
	m := xmltree.NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Add(kv[i], xmltree.Scalar(kv[i+1]))
	}
	return m
}

func TestParseDeviceInfoWithoutDeviceInfo(t *testing.T) {
	info, err := fixedParser().ParseDeviceInfo(xmltree.NewMap())
	require.NoError(t, err)
	assert.Equal(t, models.DeviceInfo{Timestamp: stamp}, info)
}

func TestParseDeviceInfo(t *testing.T) {
	doc := parseXML(t, `<DeviceInfo version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<deviceName>Main Entrance</deviceName>
<deviceID>48a0c7a2-1dd2-11b2-8e17-c056e3a1b2c3</deviceID>
<model>DS-K1T341CM</model>
<serialNumber>DS-K1T341CM20230101V030000ENJ12345678</serialNumber>
<macAddress>c0:56:e3:a1:b2:c3</macAddress>
<firmwareVersion>V3.2.30</firmwareVersion>
<deviceType>ACS</deviceType>
</DeviceInfo>`)

	info, err := fixedParser().ParseDeviceInfo(doc)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceInfo{
		Timestamp:       stamp,
		DeviceName:      "Main Entrance",
		DeviceID:        "48a0c7a2-1dd2-11b2-8e17-c056e3a1b2c3",
		Model:           "DS-K1T341CM",
		SerialNumber:    "DS-K1T341CM20230101V030000ENJ12345678",
		FirmwareVersion: "V3.2.30",
		MacAddress:      "c0:56:e3:a1:b2:c3",
		Manufacturer:    models.DefaultManufacturer,
		DeviceType:      "ACS",
	}, info)
}

func TestParseDeviceInfoManufacturerOverride(t *testing.T) {
	doc := xmltree.NewMap()
	doc.Add("DeviceInfo", mapOf("manufacturer", "OEM"))

	info, err := fixedParser().ParseDeviceInfo(doc)
	require.NoError(t, err)
	assert.Equal(t, "OEM", info.Manufacturer)
}

func TestParseDeviceInfoWrongShape(t *testing.T) {
	doc := xmltree.NewMap()
	doc.Add("DeviceInfo", xmltree.Scalar("unexpected"))

	info, err := fixedParser().ParseDeviceInfo(doc)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "document.DeviceInfo", mismatch.Path)
	assert.Equal(t, stamp, info.Timestamp)

	_, err = fixedParser().ParseDeviceInfo(xmltree.Scalar("text"))
	assert.True(t, errors.As(err, &mismatch))
}

func TestParseChannels(t *testing.T) {
	list := xmltree.List{mapOf(
		"id", "1",
		"channelName", "Camera 1",
		"enabled", "true",
		"resolutionHeight", "1080",
		"resolutionWidth", "1920",
	)}

	channels, err := fixedParser().ParseChannels(list)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, models.Channel{
		Timestamp:        stamp,
		ChannelID:        "1",
		ChannelName:      "Camera 1",
		Enabled:          true,
		ResolutionHeight: 1080,
		ResolutionWidth:  1920,
	}, channels[0])
}

func TestParseChannelsDocument(t *testing.T) {
	doc := parseXML(t, `<VideoInputChannelList version="2.0">
<VideoInputChannel>
<id>1</id>
<inputPort>1</inputPort>
<videoFormat opt="PAL,NTSC">PAL</videoFormat>
<name>Lobby</name>
<enabled>TRUE</enabled>
</VideoInputChannel>
<VideoInputChannel>
<id>2</id>
<inputPort>2</inputPort>
<enabled>false</enabled>
</VideoInputChannel>
</VideoInputChannelList>`)

	channels, err := fixedParser().ParseChannels(doc)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	assert.Equal(t, "1", channels[0].ChannelID)
	assert.Equal(t, "PAL", channels[0].VideoFormat)
	assert.True(t, channels[0].Enabled)
	assert.Equal(t, "2", channels[1].InputPort)
	assert.False(t, channels[1].Enabled)
	assert.Zero(t, channels[1].ResolutionHeight)
}

func TestParseChannelsTextAttribute(t *testing.T) {
	doc := parseXML(t, `<VideoInputChannelList version="2.0">
<VideoInputChannel>
<id>1</id>
<videoFormat opt="PAL,NTSC" text="Video standard">PAL</videoFormat>
</VideoInputChannel>
</VideoInputChannelList>`)

	channels, err := fixedParser().ParseChannels(doc)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "PAL", channels[0].VideoFormat)
}

func TestParseChannelsSingleElement(t *testing.T) {
	channels, err := fixedParser().ParseChannels(mapOf("id", "7", "enabled", "true"))
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "7", channels[0].ChannelID)
}

func TestParseChannelsEmpty(t *testing.T) {
	for name, n := range map[string]xmltree.Node{
		"nil":            nil,
		"empty list":     xmltree.List{},
		"empty element":  xmltree.NewMap(),
		"empty document": parseXML(t, `<VideoInputChannelList version="2.0"/>`),
	} {
		t.Run(name, func(t *testing.T) {
			channels, err := fixedParser().ParseChannels(n)
			require.NoError(t, err)
			assert.NotNil(t, channels)
			assert.Empty(t, channels)
		})
	}
}

func TestParseChannelsCoercionIsScopedToElement(t *testing.T) {
	list := xmltree.List{
		mapOf("id", "1", "resolutionHeight", "1080"),
		mapOf("id", "2", "resolutionHeight", "high"),
		xmltree.Scalar("junk"),
		mapOf("id", "4", "resolutionWidth", " 640 "),
	}

	channels, err := fixedParser().ParseChannels(list)
	require.Error(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "1", channels[0].ChannelID)
	assert.Equal(t, "4", channels[1].ChannelID)
	assert.Equal(t, 640, channels[1].ResolutionWidth)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)

	var coercion *CoercionError
	require.True(t, errors.As(errs[0], &coercion))
	assert.Equal(t, "channel[1].resolutionHeight", coercion.Field)
	assert.Equal(t, "high", coercion.Value)

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(errs[1], &mismatch))
	assert.Equal(t, "channel[2]", mismatch.Path)
}

func TestParseChannelsNestedWhereTextExpected(t *testing.T) {
	el := xmltree.NewMap()
	el.Add("id", xmltree.Scalar("1"))
	el.Add("channelName", mapOf("first", "a", "second", "b"))

	channels, err := fixedParser().ParseChannels(xmltree.List{el})
	assert.Empty(t, channels)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "channel[0].channelName", mismatch.Path)
}

func TestParseStreamingChannels(t *testing.T) {
	doc := parseXML(t, `<StreamingChannelList version="2.0">
<StreamingChannel>
<id>101</id>
<channelName>Camera 01</channelName>
<enabled>true</enabled>
<Transport><Protocol>RTSP</Protocol></Transport>
<Video>
<videoCodecType>H.264</videoCodecType>
<videoResolutionWidth>1920</videoResolutionWidth>
<videoResolutionHeight>1080</videoResolutionHeight>
<maxBitrate>4096</maxBitrate>
<videoFrameRate>25</videoFrameRate>
</Video>
<Audio>
<audioCompressionType>G.711ulaw</audioCompressionType>
<audioBitRate>64</audioBitRate>
</Audio>
</StreamingChannel>
<StreamingChannel>
<id>102</id>
<enabled>false</enabled>
<Video><videoCodecType>H.265</videoCodecType></Video>
</StreamingChannel>
<StreamingChannel>
<id>103</id>
</StreamingChannel>
</StreamingChannelList>`)

	streams, err := fixedParser().ParseStreamingChannels(doc)
	require.NoError(t, err)
	require.Len(t, streams, 3)

	assert.Equal(t, models.StreamingChannel{
		Timestamp:         stamp,
		ChannelID:         "101",
		TransportProtocol: "RTSP",
		Enabled:           true,
		VideoCodecType:    "H.264",
		AudioCodecType:    "G.711ulaw",
		VideoBitrate:      4096,
		AudioBitrate:      64,
		VideoFrameRate:    25,
		VideoResolution:   "1920x1080",
	}, streams[0])

	assert.Equal(t, "H.265", streams[1].VideoCodecType)
	assert.Equal(t, "0x0", streams[1].VideoResolution)
	assert.Zero(t, streams[1].VideoBitrate)

	assert.Equal(t, "", streams[2].VideoResolution)
	assert.Equal(t, "", streams[2].TransportProtocol)
}

func TestParseStreamingChannelsBadBitrate(t *testing.T) {
	video := mapOf("maxBitrate", "4M")
	el := mapOf("id", "101")
	el.Add("Video", video)

	streams, err := fixedParser().ParseStreamingChannels(xmltree.List{el, mapOf("id", "102")})
	require.Len(t, streams, 1)
	assert.Equal(t, "102", streams[0].ChannelID)

	var coercion *CoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "streaming_channel[0].Video.maxBitrate", coercion.Field)
}

func TestParsePTZInfo(t *testing.T) {
	doc := parseXML(t, `<PTZChanelCap version="2.0">
<PTZData>
<pan>true</pan>
<tilt>true</tilt>
<zoom>false</zoom>
<presetSupport>true</presetSupport>
</PTZData>
</PTZChanelCap>`)

	ptz, err := fixedParser().ParsePTZInfo(doc)
	require.NoError(t, err)
	assert.Equal(t, models.PTZInfo{
		Timestamp:       stamp,
		PTZSupported:    true,
		PanSupported:    true,
		TiltSupported:   true,
		PresetSupported: true,
	}, ptz)
}

func TestParsePTZInfoUnsupported(t *testing.T) {
	ptz, err := fixedParser().ParsePTZInfo(xmltree.NewMap())
	require.NoError(t, err)
	assert.Equal(t, models.PTZInfo{Timestamp: stamp}, ptz)
}

func TestTimestampDefaultsToNow(t *testing.T) {
	info, err := New().ParseDeviceInfo(nil)
	require.NoError(t, err)
	ts, err := time.Parse(time.RFC3339, info.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}
