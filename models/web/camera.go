package web

import "github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"

type CameraStatus string

const (
	CameraConnecting CameraStatus = "connecting"
	CameraReady      CameraStatus = "ready"
	CameraFailed     CameraStatus = "failed"
)

type GetDeviceResponse struct {
	Camera       string            `json:"camera"`
	Status       CameraStatus      `json:"status"`
	Dialect      string            `json:"dialect"`
	Info         *aqara.DeviceInfo `json:"info,omitempty"`
	MotorReady   bool              `json:"motorReady"`
	Capabilities map[string]bool   `json:"capabilities"`
}

type GetStreamResponse struct {
	Camera string `json:"camera"`
	Tier   string `json:"tier"`
	Url    string `json:"url"`
	Medias *int   `json:"medias,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  uint32 `json:"code,omitempty"`
}
