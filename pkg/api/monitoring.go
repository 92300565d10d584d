package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

// Monitoring feed: thin pass-throughs over the provider's alert capabilities,
// mounted under /api/monitoring.

func (s *Server) handleMonitoringList(c *gin.Context) {
	alerts, err := s.provider.Alerts(c.Request.Context())
	if err != nil {
		s.logger.Warnf("listing network alerts failed: %v", err)
		respondError(c, http.StatusInternalServerError, "error listing network alerts: "+err.Error())
		return
	}
	if alerts == nil {
		alerts = []map[string]any{}
	}
	respondSuccess(c, gin.H{"alerts": alerts})
}

func (s *Server) handleMonitoringCreate(c *gin.Context) {
	name := c.Query("name")
	ipRange := c.Query("ip_range")
	if name == "" || ipRange == "" {
		respondError(c, http.StatusBadRequest, "name and ip_range query parameters are required")
		return
	}

	var triggers []string
	if raw := c.Query("triggers"); raw != "" {
		triggers = strings.Split(raw, ",")
	}

	result, err := s.provider.CreateAlert(c.Request.Context(), name, ipRange, triggers)
	if err != nil {
		s.logger.Warnf("creating network alert %q failed: %v", name, err)
		respondError(c, http.StatusInternalServerError, "error creating network alert: "+err.Error())
		return
	}

	alertID, _ := result["id"].(string)
	if alertID == "" {
		respondError(c, http.StatusBadRequest, "failed to create alert")
		return
	}
	respondSuccess(c, gin.H{
		"alert_id": alertID,
		"message":  "Alert '" + name + "' created successfully",
	})
}

func (s *Server) handleMonitoringDetails(c *gin.Context) {
	alertID := c.Param("id")

	details, err := s.provider.AlertDetails(c.Request.Context(), alertID)
	if err != nil {
		if errors.Is(err, shodan.ErrNotFound) {
			respondError(c, http.StatusNotFound, "alert "+alertID+" not found")
			return
		}
		s.logger.Warnf("alert details failed for %s: %v", alertID, err)
		respondError(c, http.StatusInternalServerError, "error getting alert details: "+err.Error())
		return
	}
	if len(details) == 0 {
		respondError(c, http.StatusNotFound, "alert "+alertID+" not found")
		return
	}

	// Notifications are best-effort; the details still render without them.
	notifications, err := s.provider.AlertNotifications(c.Request.Context(), alertID)
	if err != nil {
		s.logger.Warnf("alert notifications failed for %s: %v", alertID, err)
		notifications = []map[string]any{}
	}
	if notifications == nil {
		notifications = []map[string]any{}
	}

	respondSuccess(c, gin.H{
		"alert":         details,
		"notifications": notifications,
	})
}
