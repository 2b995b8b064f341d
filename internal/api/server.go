package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/videoswitch/internal/api/models"
	"github.com/smazurov/videoswitch/internal/config"
	"github.com/smazurov/videoswitch/internal/devices"
	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/logging"
	"github.com/smazurov/videoswitch/internal/switcher"
	"github.com/smazurov/videoswitch/internal/version"
)

// Options carries the server's collaborators and settings.
type Options struct {
	Engine  *switcher.Engine
	Devices *devices.Manager
	Bus     *events.Bus

	// MetricsHandler, when set, is mounted at GET /metrics without auth.
	MetricsHandler http.Handler

	// AuthUsername/AuthPassword enable HTTP basic auth when both are set.
	AuthUsername string
	AuthPassword string

	// SettingsPath is where runtime settings are persisted.
	SettingsPath string
	// OnSettings is called after a settings update has been persisted.
	OnSettings func(config.Settings)
}

// Server is the Huma v2 API server for the switcher.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	engine     *switcher.Engine
	devices    *devices.Manager
	bus        *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	cfg := huma.DefaultConfig("VideoSwitch API", version.Get().Version)
	cfg.Info.Description = "Live production switcher: preview/program slots, takes, and transitions"
	// Empty servers list keeps OpenAPI on relative paths.
	cfg.Servers = []*huma.Server{}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, cfg)

	server := &Server{
		api:     api,
		mux:     mux,
		engine:  opts.Engine,
		devices: opts.Devices,
		bus:     opts.Bus,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth.
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Mounted on the mux directly so prometheus negotiates its own content
	// types; auth middleware does not apply here.
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	server.registerRoutes()

	return server
}

// GetMux returns the underlying HTTP mux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop or a listener error.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// basicAuthMiddleware enforces HTTP basic auth on operations that declare a
// security requirement. SSE clients that cannot set headers may pass the
// base64 credentials in the "auth" query parameter instead.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string

		authHeader := ctx.Header("Authorization")
		if authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				ctx.SetHeader("WWW-Authenticate", `Basic realm="VideoSwitch API"`)
				huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				ctx.SetHeader("WWW-Authenticate", `Basic realm="VideoSwitch API"`)
				huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				ctx.SetHeader("WWW-Authenticate", `Basic realm="VideoSwitch API"`)
				huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="VideoSwitch API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		parts := strings.SplitN(credentials, ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="VideoSwitch API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	// No auth on health so load balancers can probe it.
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerSwitcherRoutes()
	s.registerTransportRoutes()
	s.registerEffectRoutes()
	s.registerDeviceRoutes()
	s.registerSettingsRoutes()
	s.registerSnapshotRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
