// Package enrich post-processes raw device records into the derived views the
// dashboard serves: normalized vulnerabilities, service lists, banner extracts
// and geolocation points. All derivations are defensive; malformed upstream
// shapes degrade to empty values, never errors.
package enrich

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// maxBannerLength caps banner text for display.
const maxBannerLength = 500

// NormalizeVulns flattens a device's raw vulnerability field into a list of
// records with their id populated. The upstream returns vulnerabilities either
// as a map keyed by CVE id or as a list of detail objects; both shapes reduce
// to the same flat record. Map detail values that are not objects are wrapped
// as a description string.
func NormalizeVulns(raw json.RawMessage) []models.Vulnerability {
	if len(raw) == 0 {
		return nil
	}

	if byID := decodeVulnMap(raw); byID != nil {
		return byID
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		vulns := make([]models.Vulnerability, 0, len(list))
		for _, detail := range list {
			vulns = append(vulns, fromDetail(idFromDetail(detail), detail))
		}
		return vulns
	}

	// Could be a bare list of CVE id strings.
	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		vulns := make([]models.Vulnerability, 0, len(ids))
		for _, id := range ids {
			vulns = append(vulns, models.Vulnerability{ID: id})
		}
		return vulns
	}

	return nil
}

// decodeVulnMap handles the map-keyed-by-id shape. Keys are sorted so the
// output order is stable across calls.
func decodeVulnMap(raw json.RawMessage) []models.Vulnerability {
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vulns := make([]models.Vulnerability, 0, len(ids))
	for _, id := range ids {
		var detail map[string]any
		if err := json.Unmarshal(byID[id], &detail); err != nil {
			// Scalar detail value: keep it as the description.
			var scalar any
			if err := json.Unmarshal(byID[id], &scalar); err != nil {
				scalar = string(byID[id])
			}
			vulns = append(vulns, models.Vulnerability{
				ID:          id,
				Description: fmt.Sprintf("%v", scalar),
			})
			continue
		}
		vulns = append(vulns, fromDetail(id, detail))
	}
	return vulns
}

// fromDetail builds a flat record from a detail object, preserving fields the
// record does not name under Extra.
func fromDetail(id string, detail map[string]any) models.Vulnerability {
	v := models.Vulnerability{ID: id}
	extra := make(map[string]any)

	for key, value := range detail {
		switch key {
		case "severity":
			if s, ok := value.(string); ok {
				v.Severity = s
			}
		case "description", "summary":
			if s, ok := value.(string); ok && v.Description == "" {
				v.Description = s
			}
		case "id", "cve":
			// Already captured via idFromDetail for the list shape.
		default:
			extra[key] = value
		}
	}

	if len(extra) > 0 {
		v.Extra = extra
	}
	return v
}

// idFromDetail pulls an identifier out of a list-shaped detail object.
func idFromDetail(detail map[string]any) string {
	for _, key := range []string{"id", "cve"} {
		if s, ok := detail[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// DisplaySeverity is the severity used when rendering a vulnerability;
// records without one are labeled "low". This is presentation only and does
// not affect scoring.
func DisplaySeverity(v models.Vulnerability) string {
	if v.Severity == "" {
		return "low"
	}
	return v.Severity
}

// Services collects the scanner-module name of each service entry, in input
// order. Duplicates are kept; the dashboard counts them.
func Services(device *models.DeviceRecord) []string {
	var services []string
	for _, module := range device.Data {
		if module.Shodan.Module != "" {
			services = append(services, module.Shodan.Module)
		}
	}
	return services
}

// Banners extracts a display record for every service entry that carries
// banner text, truncated to the first 500 characters. Entries without a
// banner are skipped.
func Banners(device *models.DeviceRecord) []models.BannerRecord {
	var banners []models.BannerRecord
	for _, module := range device.Data {
		if module.Banner == "" {
			continue
		}
		text := module.Banner
		if len(text) > maxBannerLength {
			text = text[:maxBannerLength]
		}
		banners = append(banners, models.BannerRecord{
			Port:      module.Port,
			Protocol:  module.Transport,
			Service:   module.Shodan.Module,
			Banner:    text,
			Timestamp: module.Timestamp,
		})
	}
	return banners
}

// MapDevices derives a geolocation point for each device. Missing location
// fields come through as null/empty values rather than errors.
func MapDevices(devices []models.DeviceRecord) []models.GeoPoint {
	points := make([]models.GeoPoint, 0, len(devices))
	for i := range devices {
		device := &devices[i]
		point := models.GeoPoint{
			DeviceID: device.ID,
			IP:       device.IP,
		}
		if loc := device.Location; loc != nil {
			point.Latitude = loc.Latitude
			point.Longitude = loc.Longitude
			point.Country = loc.CountryName
			point.City = loc.City
		}
		points = append(points, point)
	}
	return points
}
