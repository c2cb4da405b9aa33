package models

// Channel represents a single video input channel
type Channel struct {
	Timestamp        string `json:"timestamp"`
	ChannelID        string `json:"channel_id"`
	ChannelName      string `json:"channel_name"`
	Enabled          bool   `json:"enabled"`
	ResolutionHeight int    `json:"resolution_height"`
	ResolutionWidth  int    `json:"resolution_width"`
	VideoFormat      string `json:"video_format"`
	InputPort        string `json:"input_port"`
	VideoQuality     string `json:"video_quality"`
}

// StreamingChannel represents one encoder stream (main, sub, third) of a channel.
type StreamingChannel struct {
	Timestamp         string `json:"timestamp"`
	ChannelID         string `json:"channel_id"`
	TransportProtocol string `json:"transport_protocol"`
	Enabled           bool   `json:"enabled"`
	VideoCodecType    string `json:"video_codec_type"`
	AudioCodecType    string `json:"audio_codec_type"`
	VideoBitrate      int    `json:"video_bitrate"`
	AudioBitrate      int    `json:"audio_bitrate"`
	VideoFrameRate    int    `json:"video_frame_rate"`
	VideoResolution   string `json:"video_resolution"` // WIDTHxHEIGHT
	StreamType        string `json:"stream_type"`
}
