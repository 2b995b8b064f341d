package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videoswitch/internal/api/models"
)

// DeviceListInput carries the optional cache-bypass flag.
type DeviceListInput struct {
	Refresh bool `query:"refresh" doc:"Bypass the discovery cache and re-enumerate"`
}

// registerDeviceRoutes sets up capture device endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List available capture devices across all providers. Results are cached; hotplug events invalidate the cache.",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *DeviceListInput) (*models.DeviceListResponse, error) {
		list, stats, err := s.devices.Discover(input.Refresh)
		if err != nil {
			return nil, huma.Error500InternalServerError("Device discovery failed", err)
		}
		return &models.DeviceListResponse{Body: models.DeviceListData{
			Devices:     list,
			Count:       stats.Total,
			FromCache:   stats.FromCache,
			RefreshedAt: stats.RefreshedAt.UTC().Format(time.RFC3339),
		}}, nil
	})
}
