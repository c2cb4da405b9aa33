package models

// DefaultManufacturer is reported when the device info document omits the manufacturer.
const DefaultManufacturer = "HikVision"

// DeviceInfo is the normalized /ISAPI/System/deviceInfo document.
type DeviceInfo struct {
	Timestamp       string `json:"timestamp"`
	DeviceName      string `json:"device_name"`
	DeviceID        string `json:"device_id"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
	MacAddress      string `json:"mac_address"`
	IPAddress       string `json:"ip_address"`
	Manufacturer    string `json:"manufacturer"`
	DeviceType      string `json:"device_type"`
}

// PTZInfo summarizes the pan/tilt/zoom capabilities of a channel.
type PTZInfo struct {
	Timestamp       string `json:"timestamp"`
	PTZSupported    bool   `json:"ptz_supported"`
	PanSupported    bool   `json:"pan_supported"`
	TiltSupported   bool   `json:"tilt_supported"`
	ZoomSupported   bool   `json:"zoom_supported"`
	PresetSupported bool   `json:"preset_supported"`
	PatrolSupported bool   `json:"patrol_supported"`
	MaxPresets      int    `json:"max_presets"`
	PanRange        string `json:"pan_range"`
	TiltRange       string `json:"tilt_range"`
	ZoomRange       string `json:"zoom_range"`
}
