package models

import (
	"encoding/json"
)

// DeviceRecord represents one host's exposure snapshot as returned by the
// upstream device-search API. The upstream payload is semi-structured, so only
// the fields the dashboard consumes are typed here; the vulnerability field is
// kept raw because the API returns it either as a map keyed by CVE id or as a
// list, depending on the endpoint.
type DeviceRecord struct {
	ID        string          `json:"id,omitempty"`        // Record identifier, when present
	IP        string          `json:"ip_str,omitempty"`    // IP address of the device
	Ports     []int           `json:"ports,omitempty"`     // Open ports
	Vulns     json.RawMessage `json:"vulns,omitempty"`     // Raw vulnerability data (map or list)
	Data      []ServiceModule `json:"data,omitempty"`      // Per-service scan modules
	OS        string          `json:"os,omitempty"`        // Operating system, if detected
	Hostnames []string        `json:"hostnames,omitempty"` // Known hostnames
	Org       string          `json:"org,omitempty"`       // Owning organization
	ISP       string          `json:"isp,omitempty"`       // Internet service provider
	Location  *Location       `json:"location,omitempty"`  // Nested geolocation data

	// Search matches are per-service records and carry the service fields at
	// the top level instead of under data.
	Port      int        `json:"port,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Shodan    ModuleInfo `json:"_shodan,omitempty"`

	// Some raw host responses carry geolocation at the top level instead of
	// under location; these are migrated into Location by the client.
	CountryName string   `json:"country_name,omitempty"`
	City        string   `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// ServiceModule is one entry of a device's data array: the banner and metadata
// collected for a single service on a single port.
type ServiceModule struct {
	Port      int        `json:"port"`
	Transport string     `json:"transport"`
	Banner    string     `json:"data"`
	Timestamp string     `json:"timestamp"`
	Shodan    ModuleInfo `json:"_shodan"`
}

// ModuleInfo carries the scanner-module metadata nested under _shodan.
type ModuleInfo struct {
	Module string `json:"module"`
}

// Location holds a device's geolocation data.
type Location struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	CountryName string   `json:"country_name"`
	City        string   `json:"city"`
}

// Vulnerability is the normalized, flat form every vulnerability is reduced to
// before scoring, regardless of the shape the upstream returned it in.
type Vulnerability struct {
	ID          string         `json:"id"`
	Severity    string         `json:"severity,omitempty"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"` // Remaining detail fields from the source
}

// Risk is the scored view of one device. It lives for a single request and is
// never persisted.
type Risk struct {
	DeviceID        string
	RiskScore       int
	Vulnerabilities []Vulnerability
	Ports           []int
}

// RiskSummary is the JSON shape of a Risk in the devices response.
type RiskSummary struct {
	DeviceID           string   `json:"device_id"`
	RiskScore          int      `json:"risk_score"`
	VulnerabilityCount int      `json:"vulnerability_count"`
	PortCount          int      `json:"port_count"`
	OS                 string   `json:"os"`
	Services           []string `json:"services"`
}

// BannerRecord is a display-friendly extract of one service banner.
type BannerRecord struct {
	Port      int    `json:"port"`
	Protocol  string `json:"protocol"`
	Service   string `json:"service"`
	Banner    string `json:"banner"`
	Timestamp string `json:"timestamp"`
}

// GeoPoint is a device's map marker. Coordinates are pointers so a missing
// latitude/longitude serializes as null rather than 0.
type GeoPoint struct {
	DeviceID  string   `json:"device_id"`
	IP        string   `json:"ip"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Country   string   `json:"country"`
	City      string   `json:"city"`
}
