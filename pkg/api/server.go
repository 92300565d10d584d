package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/config"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

// Alerter is the notification hook the devices endpoint fires for high-risk
// devices.
type Alerter interface {
	MaybeAlert(device *models.DeviceRecord, score int) bool
}

// Server is the web dashboard: HTML pages plus the JSON API over the upstream
// device-search provider.
type Server struct {
	config   config.Config
	router   *gin.Engine
	provider shodan.Provider
	resolver *shodan.Resolver
	alerter  Alerter
	logger   *logrus.Logger
}

// NewServer creates the dashboard server and registers all routes.
func NewServer(cfg config.Config, provider shodan.Provider, alerter Alerter, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	s := &Server{
		config:   cfg,
		router:   router,
		provider: provider,
		resolver: shodan.NewResolver(provider, logger),
		alerter:  alerter,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures middleware, pages and API routes.
func (s *Server) setupRoutes() {
	if s.config.EnableCORS {
		s.router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}

			c.Next()
		})
	}

	// HTML pages. Skipped when no templates are on disk so the JSON API can
	// run headless (and under test).
	if matches, err := filepath.Glob(s.config.TemplatesGlob); err == nil && len(matches) > 0 {
		s.router.LoadHTMLGlob(s.config.TemplatesGlob)
		s.router.Static("/static", s.config.StaticDir)

		s.router.GET("/", s.handleIndex)
		s.router.GET("/dashboard", s.handleDashboard)
		s.router.GET("/settings", s.handleSettings)
	}

	// Device search and actions.
	s.router.GET("/devices", s.handleDevices)
	s.router.GET("/device/:ip", s.handleDeviceDetail)
	s.router.POST("/scan", s.handleScan)
	s.router.GET("/domain/:domain", s.handleDomain)
	s.router.GET("/alerts", s.handleListAlerts)
	s.router.POST("/alerts", s.handleCreateAlert)
	s.router.GET("/exposure/:domain", s.handleExposure)
	s.router.POST("/toggle-demo", s.handleToggleDemo)
	s.router.GET("/test-connection", s.handleTestConnection)

	// DNS routes.
	s.router.GET("/resolve/:domain", s.handleResolve)
	s.router.GET("/reverse", s.handleReverse)
	s.router.GET("/domain-info/:domain", s.handleDomainInfo)

	// Monitoring feed.
	monitoring := s.router.Group("/api/monitoring")
	{
		monitoring.GET("/network-alerts", s.handleMonitoringList)
		monitoring.POST("/network-alerts", s.handleMonitoringCreate)
		monitoring.GET("/network-alerts/:id", s.handleMonitoringDetails)
	}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Infof("starting dashboard server on port %s", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Page handlers

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"title": "Device Exposure Dashboard",
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title": "Device Exposure Dashboard",
	})
}

func (s *Server) handleSettings(c *gin.Context) {
	c.HTML(http.StatusOK, "settings.html", gin.H{
		"title": "Settings",
	})
}

// Response helpers

func respondSuccess(c *gin.Context, payload gin.H) {
	body := gin.H{"status": "success"}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "error": message})
}
