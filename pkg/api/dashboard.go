package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/enrich"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/risk"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

// noDevicesWarning is returned with an empty devices payload so the UI can
// point users at the connection test instead of showing a silent blank page.
const noDevicesWarning = "No devices found or API connection issue. Try checking /test-connection endpoint."

// handleDevices is the main dashboard query: resolve the query to device
// records, derive map markers and risk summaries, and fire alerts for
// high-risk devices. This path never returns an error status; failures
// degrade to an empty payload with an advisory message.
func (s *Server) handleDevices(c *gin.Context) {
	query := c.Query("ip_range")
	if query == "" {
		respondError(c, http.StatusBadRequest, "ip_range query parameter is required")
		return
	}

	s.logger.Infof("searching for devices with query: %s", query)
	devices := s.resolver.SearchDevices(c.Request.Context(), query)

	if len(devices) == 0 {
		s.logger.Infof("no devices found for query: %s", query)
		c.JSON(http.StatusOK, gin.H{
			"devices": []models.DeviceRecord{},
			"mapped":  []models.GeoPoint{},
			"risks":   []models.RiskSummary{},
			"warning": noDevicesWarning,
		})
		return
	}

	s.logger.Infof("found %d devices", len(devices))
	mapped := enrich.MapDevices(devices)

	risks := make([]models.RiskSummary, 0, len(devices))
	for i := range devices {
		device := &devices[i]

		vulns := enrich.NormalizeVulns(device.Vulns)
		services := enrich.Services(device)
		scored := risk.New(device.Identifier(), vulns, device.Ports)

		osName := device.OS
		if osName == "" {
			osName = "Unknown"
		}
		risks = append(risks, models.RiskSummary{
			DeviceID:           scored.DeviceID,
			RiskScore:          scored.RiskScore,
			VulnerabilityCount: len(scored.Vulnerabilities),
			PortCount:          len(scored.Ports),
			OS:                 osName,
			Services:           services,
		})

		s.alerter.MaybeAlert(device, scored.RiskScore)
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"mapped":  mapped,
		"risks":   risks,
	})
}

// handleDeviceDetail returns one device's full record along with its banner
// extracts, normalized vulnerabilities and risk score.
func (s *Server) handleDeviceDetail(c *gin.Context) {
	ip := c.Param("ip")

	device, err := s.provider.Host(c.Request.Context(), ip)
	if err != nil {
		if errors.Is(err, shodan.ErrNotFound) {
			respondError(c, http.StatusNotFound, "device not found: "+ip)
			return
		}
		s.logger.Warnf("device lookup failed for %s: %v", ip, err)
		respondError(c, http.StatusInternalServerError, "error getting device info: "+err.Error())
		return
	}

	vulns := enrich.NormalizeVulns(device.Vulns)
	// Severity defaults to "low" for display only; scoring has already seen
	// the raw values.
	display := make([]models.Vulnerability, len(vulns))
	for i, v := range vulns {
		display[i] = v
		display[i].Severity = enrich.DisplaySeverity(v)
	}

	respondSuccess(c, gin.H{
		"device":          device,
		"banners":         enrich.Banners(device),
		"vulnerabilities": display,
		"risk_score":      risk.Score(vulns, device.Ports),
	})
}

// handleScan requests an upstream re-scan of an IP address.
func (s *Server) handleScan(c *gin.Context) {
	ip := c.Query("ip_address")
	if ip == "" {
		respondError(c, http.StatusBadRequest, "ip_address query parameter is required")
		return
	}

	result, err := s.provider.Scan(c.Request.Context(), ip)
	if err != nil {
		s.logger.Warnf("scan request failed for %s: %v", ip, err)
		respondError(c, http.StatusInternalServerError, "scan request failed: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"result": result})
}

// handleDomain returns upstream DNS data for a domain.
func (s *Server) handleDomain(c *gin.Context) {
	domain := c.Param("domain")

	info, err := s.provider.DomainInfo(c.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, shodan.ErrNotFound) {
			respondError(c, http.StatusNotFound, "no information found for domain: "+domain)
			return
		}
		s.logger.Warnf("domain lookup failed for %s: %v", domain, err)
		respondError(c, http.StatusInternalServerError, "error getting domain info: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"domain": domain, "info": info})
}

// handleListAlerts lists the configured network alerts.
func (s *Server) handleListAlerts(c *gin.Context) {
	alerts, err := s.provider.Alerts(c.Request.Context())
	if err != nil {
		s.logger.Warnf("listing alerts failed: %v", err)
		respondError(c, http.StatusInternalServerError, "error listing alerts: "+err.Error())
		return
	}
	if alerts == nil {
		alerts = []map[string]any{}
	}
	respondSuccess(c, gin.H{"alerts": alerts})
}

// handleCreateAlert registers a network alert for a CIDR range. Triggers are
// passed comma-separated; when omitted the provider applies its defaults.
func (s *Server) handleCreateAlert(c *gin.Context) {
	name := c.Query("name")
	network := c.Query("network")
	if name == "" || network == "" {
		respondError(c, http.StatusBadRequest, "name and network query parameters are required")
		return
	}

	var triggers []string
	if raw := c.Query("triggers"); raw != "" {
		triggers = strings.Split(raw, ",")
	}

	result, err := s.provider.CreateAlert(c.Request.Context(), name, network, triggers)
	if err != nil {
		s.logger.Warnf("creating alert %q failed: %v", name, err)
		respondError(c, http.StatusInternalServerError, "error creating alert: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"alert": result})
}

// handleExposure builds an internet exposure report for an organization.
func (s *Server) handleExposure(c *gin.Context) {
	domain := c.Param("domain")

	report, err := s.provider.ExposureReport(c.Request.Context(), domain)
	if err != nil {
		s.logger.Warnf("exposure report failed for %s: %v", domain, err)
		respondError(c, http.StatusInternalServerError, "error generating exposure report: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"report": report})
}

// handleToggleDemo flips the provider between live and canned responses.
func (s *Server) handleToggleDemo(c *gin.Context) {
	enable, err := strconv.ParseBool(c.Query("enable"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "enable query parameter must be true or false")
		return
	}

	s.provider.SetDemoMode(enable)
	s.logger.Infof("demo mode set to %t", enable)
	respondSuccess(c, gin.H{"demo_mode": enable})
}

// handleTestConnection verifies the upstream API is reachable with the
// configured key.
func (s *Server) handleTestConnection(c *gin.Context) {
	info, err := s.provider.APIInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "upstream API unreachable: "+err.Error())
		return
	}
	respondSuccess(c, gin.H{"api_info": info})
}
