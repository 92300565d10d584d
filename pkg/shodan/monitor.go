package shodan

import (
	"context"
	"net/url"
)

// defaultTriggers are applied when an alert is created without explicit
// trigger names.
var defaultTriggers = []string{"malware", "vulnerable", "open_database", "iot"}

// CreateAlert registers a network alert for a CIDR range. When triggers is
// empty a default set is used.
func (c *Client) CreateAlert(ctx context.Context, name, network string, triggers []string) (map[string]any, error) {
	if c.DemoMode() {
		return map[string]any{"id": "demo123", "name": name, "filters": map[string]any{"ip": network}}, nil
	}

	if len(triggers) == 0 {
		triggers = defaultTriggers
	}

	body := map[string]any{
		"name": name,
		"filters": map[string]any{
			"ip": network,
		},
		"triggers": triggers,
	}

	var result map[string]any
	if err := c.post(ctx, "/shodan/alert", nil, body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Alerts lists all configured network alerts.
func (c *Client) Alerts(ctx context.Context) ([]map[string]any, error) {
	if c.DemoMode() {
		return demoAlerts(), nil
	}

	var alerts []map[string]any
	if err := c.get(ctx, "/shodan/alert/info", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// AlertDetails fetches one alert's configuration.
func (c *Client) AlertDetails(ctx context.Context, alertID string) (map[string]any, error) {
	if c.DemoMode() {
		return map[string]any{"id": alertID, "name": "Demo Alert", "created": "2025-06-07"}, nil
	}

	var details map[string]any
	if err := c.get(ctx, "/shodan/alert/"+url.PathEscape(alertID)+"/info", nil, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// AlertNotifications fetches the notifiers triggered for an alert.
func (c *Client) AlertNotifications(ctx context.Context, alertID string) ([]map[string]any, error) {
	if c.DemoMode() {
		return []map[string]any{}, nil
	}

	var notifications []map[string]any
	if err := c.get(ctx, "/shodan/alert/"+url.PathEscape(alertID)+"/notifier", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
