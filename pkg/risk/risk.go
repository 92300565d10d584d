package risk

import (
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// severityWeights maps the four recognized severity tiers to their score
// contribution. Any other severity string, including an empty one, scores
// zero; display code may still label a missing severity "low", but that
// default never feeds back into the weighting here.
var severityWeights = map[string]int{
	"critical": 10,
	"high":     5,
	"medium":   3,
	"low":      1,
}

// highRiskPorts are ports considered inherently risky when open, regardless
// of the service behind them.
var highRiskPorts = map[int]bool{
	21:   true, // FTP
	22:   true, // SSH
	23:   true, // Telnet
	2323: true, // Telnet alt
	8080: true, // HTTP alt
}

// Score computes a device's risk score from its normalized vulnerabilities
// and open ports. The result is always in [0, 100]. Repeated high-risk ports
// in the input each count; the caller decides whether to dedup.
func Score(vulns []models.Vulnerability, ports []int) int {
	base := 0

	for _, v := range vulns {
		base += severityWeights[v.Severity]
	}

	for _, port := range ports {
		if highRiskPorts[port] {
			base += 3
		}
	}

	// Normalize to a 0-100 scale.
	score := base * 5
	if score > 100 {
		score = 100
	}
	return score
}

// New builds a scored Risk for a device.
func New(deviceID string, vulns []models.Vulnerability, ports []int) models.Risk {
	return models.Risk{
		DeviceID:        deviceID,
		RiskScore:       Score(vulns, ports),
		Vulnerabilities: vulns,
		Ports:           ports,
	}
}
