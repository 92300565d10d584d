package shodan

import (
	"encoding/json"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// Canned responses served in demo mode and as the last-resort exposure
// fallback. They mirror the shape of live upstream data closely enough for
// every dashboard page to render.

func demoDevice(ip string) *models.DeviceRecord {
	lat, lon := 51.5074, -0.1278
	return &models.DeviceRecord{
		IP:    ip,
		Ports: []int{22, 80, 8080},
		OS:    "Linux 4.x",
		Vulns: json.RawMessage(`{"CVE-2021-44228": {"severity": "critical", "summary": "Log4j remote code execution"}}`),
		Data: []models.ServiceModule{
			{
				Port:      22,
				Transport: "tcp",
				Banner:    "SSH-2.0-OpenSSH_7.4",
				Timestamp: "2025-06-07T12:00:00.000000",
				Shodan:    models.ModuleInfo{Module: "ssh"},
			},
			{
				Port:      80,
				Transport: "tcp",
				Banner:    "HTTP/1.1 200 OK\r\nServer: Apache/2.4.41",
				Timestamp: "2025-06-07T12:00:00.000000",
				Shodan:    models.ModuleInfo{Module: "http"},
			},
		},
		Location: &models.Location{
			Latitude:    &lat,
			Longitude:   &lon,
			CountryName: "United Kingdom",
			City:        "London",
		},
	}
}

func demoMatches(query string) []models.DeviceRecord {
	return []models.DeviceRecord{*demoDevice("203.0.113.10")}
}

func demoDomainInfo(domain string) map[string]any {
	return map[string]any{
		"domain":     domain,
		"subdomains": []string{"www", "mail", "remote", "login"},
		"tags":       []string{"cms", "e-commerce"},
		"ports":      []int{80, 443, 8080, 25},
	}
}

func demoAlerts() []map[string]any {
	return []map[string]any{
		{"id": "demo123", "name": "Corporate Network", "created": "2025-06-07"},
		{"id": "demo456", "name": "IoT Devices", "created": "2025-06-08"},
	}
}

func demoExposureReport(domain, note string) *ExposureReport {
	return &ExposureReport{
		Domain:          domain,
		Ports:           map[string]int{"80": 15, "443": 10, "22": 5, "21": 2},
		Vulnerabilities: []string{"CVE-2021-44228", "CVE-2022-22965"},
		Services:        map[string]int{"http": 20, "ssh": 5, "ftp": 2},
		TotalIPs:        32,
		Note:            note,
	}
}
