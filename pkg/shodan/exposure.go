package shodan

import (
	"context"
	"encoding/json"
	"strconv"
)

// ExposureReport summarizes an organization's internet exposure, aggregated
// from a hostname search across the upstream index.
type ExposureReport struct {
	Domain          string         `json:"domain"`
	Ports           map[string]int `json:"ports"`
	Vulnerabilities []string       `json:"vulnerabilities"`
	Services        map[string]int `json:"services"`
	Countries       map[string]int `json:"countries,omitempty"`
	Timestamps      []string       `json:"timestamps,omitempty"`
	TotalIPs        int            `json:"total_ips"`
	Note            string         `json:"note,omitempty"`
}

// ExposureReport builds an exposure summary for a domain by aggregating a
// hostname search. When the upstream search fails the canned demo report is
// returned with a note, so the dashboard page still renders.
func (c *Client) ExposureReport(ctx context.Context, domain string) (*ExposureReport, error) {
	if c.DemoMode() {
		return demoExposureReport(domain, ""), nil
	}

	resp, err := c.search(ctx, "hostname:"+domain)
	if err != nil {
		c.logger.Warnf("exposure search failed for %s: %v", domain, err)
		return demoExposureReport(domain, "Using demo data due to API limitations"), nil
	}

	report := &ExposureReport{
		Domain:          domain,
		Ports:           map[string]int{},
		Vulnerabilities: []string{},
		Services:        map[string]int{},
		Countries:       map[string]int{},
		Timestamps:      []string{},
		TotalIPs:        resp.Total,
	}

	seenVulns := map[string]bool{}
	seenTimestamps := map[string]bool{}

	for i := range resp.Matches {
		match := &resp.Matches[i]

		if match.Port != 0 {
			report.Ports[strconv.Itoa(match.Port)]++
		}
		if match.Shodan.Module != "" {
			report.Services[match.Shodan.Module]++
		}
		if match.Timestamp != "" && !seenTimestamps[match.Timestamp] {
			seenTimestamps[match.Timestamp] = true
			report.Timestamps = append(report.Timestamps, match.Timestamp)
		}
		if match.Location != nil && match.Location.CountryName != "" {
			report.Countries[match.Location.CountryName]++
		}

		for _, id := range vulnIDs(match.Vulns) {
			if !seenVulns[id] {
				seenVulns[id] = true
				report.Vulnerabilities = append(report.Vulnerabilities, id)
			}
		}
	}

	return report, nil
}

// vulnIDs extracts just the vulnerability identifiers from the raw field,
// whichever shape it arrives in.
func vulnIDs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err == nil {
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		return ids
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids
	}
	return nil
}
