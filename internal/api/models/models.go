// Package models holds the API's shared request and response shapes.
package models

import (
	"github.com/smazurov/videoswitch/internal/devices"
	"github.com/smazurov/videoswitch/internal/logging"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// AckData acknowledges an accepted operation.
type AckData struct {
	Status  string `json:"status" example:"ok" doc:"Operation status"`
	Message string `json:"message,omitempty" doc:"Optional detail"`
}

type AckResponse struct {
	Body AckData
}

// Device models
type DeviceListData struct {
	Devices     []devices.DeviceInfo `json:"devices" doc:"Available capture devices"`
	Count       int                  `json:"count" example:"2" doc:"Number of devices"`
	FromCache   bool                 `json:"from_cache" doc:"Whether the list came from the discovery cache"`
	RefreshedAt string               `json:"refreshed_at" doc:"When the list was last refreshed"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

// Log history models
type LogHistoryData struct {
	Entries []logging.Entry `json:"entries" doc:"Recent log entries, oldest first"`
	Count   int             `json:"count" example:"200" doc:"Number of entries returned"`
}

type LogHistoryResponse struct {
	Body LogHistoryData
}
