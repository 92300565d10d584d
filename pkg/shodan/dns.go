package shodan

import (
	"context"
	"net/url"
)

// DomainInfo fetches DNS data for a domain and enriches it with the domain's
// current resolution when that lookup succeeds.
func (c *Client) DomainInfo(ctx context.Context, domain string) (map[string]any, error) {
	if c.DemoMode() {
		return demoDomainInfo(domain), nil
	}

	var info map[string]any
	if err := c.get(ctx, "/dns/domain/"+url.PathEscape(domain), nil, &info); err != nil {
		return nil, err
	}

	if ip, err := c.Resolve(ctx, domain); err == nil && ip != "" {
		info["resolution"] = ip
	}
	return info, nil
}

// Resolve returns the IP address a domain currently resolves to.
func (c *Client) Resolve(ctx context.Context, domain string) (string, error) {
	if c.DemoMode() {
		return "203.0.113.10", nil
	}

	params := url.Values{}
	params.Set("hostnames", domain)

	var result map[string]string
	if err := c.get(ctx, "/dns/resolve", params, &result); err != nil {
		return "", err
	}
	return result[domain], nil
}

// Reverse maps each of the given comma-separated IP addresses to its known
// hostnames.
func (c *Client) Reverse(ctx context.Context, ips string) (map[string][]string, error) {
	if c.DemoMode() {
		return map[string][]string{"203.0.113.10": {"demo.example.com"}}, nil
	}

	params := url.Values{}
	params.Set("ips", ips)

	var result map[string][]string
	if err := c.get(ctx, "/dns/reverse", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
