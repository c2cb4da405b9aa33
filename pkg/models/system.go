package models

// SystemInfo is the aggregate written by a collection run.
type SystemInfo struct {
	RunID             string             `json:"run_id"`
	Timestamp         string             `json:"timestamp"`
	DeviceInfo        DeviceInfo         `json:"device_info"`
	Channels          []Channel          `json:"channels"`
	StreamingChannels []StreamingChannel `json:"streaming_channels"`
	PTZInfo           PTZInfo            `json:"ptz_info"`
	Failures          []FetchFailure     `json:"failures,omitempty"`
}

// FetchFailure records a sub-resource that could not be collected.
type FetchFailure struct {
	Resource string `json:"resource"`
	Error    string `json:"error"`
}

// ActiveChannels counts enabled video input channels.
func (s *SystemInfo) ActiveChannels() int {
	n := 0
	for _, ch := range s.Channels {
		if ch.Enabled {
			n++
		}
	}
	return n
}

// ActiveStreamingChannels counts enabled streaming channels.
func (s *SystemInfo) ActiveStreamingChannels() int {
	n := 0
	for _, ch := range s.StreamingChannels {
		if ch.Enabled {
			n++
		}
	}
	return n
}
