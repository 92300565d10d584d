package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/config"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

// fakeProvider scripts the provider capabilities the handlers consume.
type fakeProvider struct {
	hostDirect  func(ip string) (*models.DeviceRecord, error)
	host        func(ip string) (*models.DeviceRecord, error)
	search      func(query string) ([]models.DeviceRecord, error)
	scan        func(ip string) (map[string]any, error)
	domainInfo  func(domain string) (map[string]any, error)
	resolve     func(domain string) (string, error)
	reverse     func(ips string) (map[string][]string, error)
	createAlert func(name, network string, triggers []string) (map[string]any, error)
	alerts      func() ([]map[string]any, error)
	details     func(id string) (map[string]any, error)
	notifs      func(id string) ([]map[string]any, error)
	exposure    func(domain string) (*shodan.ExposureReport, error)
	apiInfo     func() (map[string]any, error)

	demoMode bool
}

var errNotScripted = errors.New("not scripted")

func (f *fakeProvider) Host(_ context.Context, ip string) (*models.DeviceRecord, error) {
	if f.host == nil {
		return nil, errNotScripted
	}
	return f.host(ip)
}

func (f *fakeProvider) HostDirect(_ context.Context, ip string) (*models.DeviceRecord, error) {
	if f.hostDirect == nil {
		return nil, errNotScripted
	}
	return f.hostDirect(ip)
}

func (f *fakeProvider) Search(_ context.Context, query string) ([]models.DeviceRecord, error) {
	if f.search == nil {
		return nil, errNotScripted
	}
	return f.search(query)
}

func (f *fakeProvider) Scan(_ context.Context, ip string) (map[string]any, error) {
	if f.scan == nil {
		return nil, errNotScripted
	}
	return f.scan(ip)
}

func (f *fakeProvider) DomainInfo(_ context.Context, domain string) (map[string]any, error) {
	if f.domainInfo == nil {
		return nil, errNotScripted
	}
	return f.domainInfo(domain)
}

func (f *fakeProvider) Resolve(_ context.Context, domain string) (string, error) {
	if f.resolve == nil {
		return "", errNotScripted
	}
	return f.resolve(domain)
}

func (f *fakeProvider) Reverse(_ context.Context, ips string) (map[string][]string, error) {
	if f.reverse == nil {
		return nil, errNotScripted
	}
	return f.reverse(ips)
}

func (f *fakeProvider) CreateAlert(_ context.Context, name, network string, triggers []string) (map[string]any, error) {
	if f.createAlert == nil {
		return nil, errNotScripted
	}
	return f.createAlert(name, network, triggers)
}

func (f *fakeProvider) Alerts(_ context.Context) ([]map[string]any, error) {
	if f.alerts == nil {
		return nil, errNotScripted
	}
	return f.alerts()
}

func (f *fakeProvider) AlertDetails(_ context.Context, id string) (map[string]any, error) {
	if f.details == nil {
		return nil, errNotScripted
	}
	return f.details(id)
}

func (f *fakeProvider) AlertNotifications(_ context.Context, id string) ([]map[string]any, error) {
	if f.notifs == nil {
		return nil, errNotScripted
	}
	return f.notifs(id)
}

func (f *fakeProvider) ExposureReport(_ context.Context, domain string) (*shodan.ExposureReport, error) {
	if f.exposure == nil {
		return nil, errNotScripted
	}
	return f.exposure(domain)
}

func (f *fakeProvider) APIInfo(_ context.Context) (map[string]any, error) {
	if f.apiInfo == nil {
		return nil, errNotScripted
	}
	return f.apiInfo()
}

func (f *fakeProvider) SetDemoMode(enabled bool) { f.demoMode = enabled }
func (f *fakeProvider) DemoMode() bool           { return f.demoMode }

// recordingAlerter captures alert attempts from the devices handler.
type recordingAlerter struct {
	scores []int
}

func (r *recordingAlerter) MaybeAlert(_ *models.DeviceRecord, score int) bool {
	if score <= 75 {
		return false
	}
	r.scores = append(r.scores, score)
	return true
}

func newTestServer(t *testing.T, provider shodan.Provider, alerter Alerter) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := config.DefaultConfig()
	cfg.TemplatesGlob = "no-templates-here/*"
	if alerter == nil {
		alerter = &recordingAlerter{}
	}
	return NewServer(cfg, provider, alerter, logger)
}

func doRequest(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func highRiskDevice(ip string) *models.DeviceRecord {
	return &models.DeviceRecord{
		IP:    ip,
		OS:    "Linux",
		Ports: []int{22, 80},
		Vulns: json.RawMessage(`{
			"CVE-1": {"severity": "critical"},
			"CVE-2": {"severity": "critical"}
		}`),
		Data: []models.ServiceModule{
			{Port: 22, Shodan: models.ModuleInfo{Module: "ssh"}},
			{Port: 80, Shodan: models.ModuleInfo{Module: "http"}},
		},
	}
}

func TestDevicesEndpointScoresAndAlerts(t *testing.T) {
	provider := &fakeProvider{
		hostDirect: func(ip string) (*models.DeviceRecord, error) {
			return highRiskDevice(ip), nil
		},
	}
	alerter := &recordingAlerter{}
	s := newTestServer(t, provider, alerter)

	w, body := doRequest(t, s, http.MethodGet, "/devices?ip_range=10.0.0.1")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, body, "warning")

	risks, ok := body["risks"].([]any)
	require.True(t, ok)
	require.Len(t, risks, 1)

	summary := risks[0].(map[string]any)
	// Two criticals (20) plus port 22 (3) gives base 23, clamped to 100.
	assert.Equal(t, float64(100), summary["risk_score"])
	assert.Equal(t, "10.0.0.1", summary["device_id"])
	assert.Equal(t, float64(2), summary["vulnerability_count"])
	assert.Equal(t, float64(2), summary["port_count"])
	assert.Equal(t, "Linux", summary["os"])

	mapped, ok := body["mapped"].([]any)
	require.True(t, ok)
	assert.Len(t, mapped, 1)

	require.Len(t, alerter.scores, 1)
	assert.Equal(t, 100, alerter.scores[0])
}

func TestDevicesEndpointEmptyResultCarriesWarning(t *testing.T) {
	provider := &fakeProvider{} // every lookup fails
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/devices?ip_range=10.0.0.1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, noDevicesWarning, body["warning"])
	assert.Empty(t, body["devices"])
	assert.Empty(t, body["risks"])
}

func TestDevicesEndpointRequiresQuery(t *testing.T) {
	s := newTestServer(t, &fakeProvider{}, nil)

	w, body := doRequest(t, s, http.MethodGet, "/devices")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
}

func TestDevicesEndpointNoAlertBelowThreshold(t *testing.T) {
	provider := &fakeProvider{
		hostDirect: func(ip string) (*models.DeviceRecord, error) {
			// Three highs give exactly 75; the strict boundary must not fire.
			return &models.DeviceRecord{
				IP: ip,
				Vulns: json.RawMessage(`{
					"CVE-1": {"severity": "high"},
					"CVE-2": {"severity": "high"},
					"CVE-3": {"severity": "high"}
				}`),
			}, nil
		},
	}
	alerter := &recordingAlerter{}
	s := newTestServer(t, provider, alerter)

	w, body := doRequest(t, s, http.MethodGet, "/devices?ip_range=10.0.0.1")

	require.Equal(t, http.StatusOK, w.Code)
	risks := body["risks"].([]any)
	summary := risks[0].(map[string]any)
	assert.Equal(t, float64(75), summary["risk_score"])
	assert.Empty(t, alerter.scores)
}

func TestDeviceDetailEndpoint(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	provider := &fakeProvider{
		host: func(ip string) (*models.DeviceRecord, error) {
			return &models.DeviceRecord{
				IP:    ip,
				Ports: []int{22},
				Vulns: json.RawMessage(`{"CVE-1": {"severity": "critical"}, "CVE-2": {}}`),
				Data: []models.ServiceModule{
					{Port: 80, Transport: "tcp", Banner: string(long), Shodan: models.ModuleInfo{Module: "http"}},
				},
			}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/device/10.0.0.1")

	require.Equal(t, http.StatusOK, w.Code)
	// One critical (10) plus port 22 (3): base 13, score 65. The severity-less
	// CVE-2 scores nothing even though it displays as "low".
	assert.Equal(t, float64(65), body["risk_score"])

	banners := body["banners"].([]any)
	require.Len(t, banners, 1)
	assert.Len(t, banners[0].(map[string]any)["banner"], 500)

	vulns := body["vulnerabilities"].([]any)
	require.Len(t, vulns, 2)
	assert.Equal(t, "low", vulns[1].(map[string]any)["severity"])
}

func TestDeviceDetailNotFound(t *testing.T) {
	s := newTestServer(t, &fakeProvider{
		host: func(string) (*models.DeviceRecord, error) { return nil, shodan.ErrNotFound },
	}, nil)

	w, _ := doRequest(t, s, http.MethodGet, "/device/10.0.0.1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanEndpoint(t *testing.T) {
	provider := &fakeProvider{
		scan: func(ip string) (map[string]any, error) {
			return map[string]any{"id": "scan-1"}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodPost, "/scan?ip_address=10.0.0.1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])

	w, _ = doRequest(t, s, http.MethodPost, "/scan")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveDistinguishesNotFoundFromInternalError(t *testing.T) {
	tests := []struct {
		name     string
		resolve  func(string) (string, error)
		wantCode int
	}{
		{
			"resolved",
			func(string) (string, error) { return "203.0.113.10", nil },
			http.StatusOK,
		},
		{
			"not found upstream",
			func(string) (string, error) { return "", shodan.ErrNotFound },
			http.StatusNotFound,
		},
		{
			"empty resolution",
			func(string) (string, error) { return "", nil },
			http.StatusNotFound,
		},
		{
			"internal error",
			func(string) (string, error) { return "", errors.New("boom") },
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeProvider{resolve: tt.resolve}, nil)
			w, body := doRequest(t, s, http.MethodGet, "/resolve/example.com")

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "203.0.113.10", body["ip_addresses"])
			} else {
				assert.Equal(t, "error", body["status"])
			}
		})
	}
}

func TestReverseEndpoint(t *testing.T) {
	provider := &fakeProvider{
		reverse: func(ips string) (map[string][]string, error) {
			assert.Equal(t, "203.0.113.10,203.0.113.11", ips)
			return map[string][]string{"203.0.113.10": {"a.example.com"}}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/reverse?ips=203.0.113.10,203.0.113.11")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "ip_hostnames")

	w, _ = doRequest(t, s, http.MethodGet, "/reverse")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDomainInfoNotFound(t *testing.T) {
	s := newTestServer(t, &fakeProvider{
		domainInfo: func(string) (map[string]any, error) { return nil, shodan.ErrNotFound },
	}, nil)

	w, _ := doRequest(t, s, http.MethodGet, "/domain-info/example.com")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertsEndpoints(t *testing.T) {
	provider := &fakeProvider{
		alerts: func() ([]map[string]any, error) {
			return []map[string]any{{"id": "a1"}}, nil
		},
		createAlert: func(name, network string, triggers []string) (map[string]any, error) {
			assert.Equal(t, "corp", name)
			assert.Equal(t, "192.0.2.0/24", network)
			assert.Equal(t, []string{"malware", "iot"}, triggers)
			return map[string]any{"id": "a2"}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["alerts"], 1)

	w, _ = doRequest(t, s, http.MethodPost, "/alerts?name=corp&network=192.0.2.0%2F24&triggers=malware,iot")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, s, http.MethodPost, "/alerts?name=corp")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitoringDetails(t *testing.T) {
	provider := &fakeProvider{
		details: func(id string) (map[string]any, error) {
			if id != "a1" {
				return nil, shodan.ErrNotFound
			}
			return map[string]any{"id": "a1", "name": "Corp"}, nil
		},
		notifs: func(string) ([]map[string]any, error) {
			return nil, errors.New("notifier endpoint down")
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/api/monitoring/network-alerts/a1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "alert")
	// Notification failure is best-effort; details still come back.
	assert.Equal(t, []any{}, body["notifications"])

	w, _ = doRequest(t, s, http.MethodGet, "/api/monitoring/network-alerts/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMonitoringCreateRequiresParams(t *testing.T) {
	s := newTestServer(t, &fakeProvider{
		createAlert: func(name, network string, triggers []string) (map[string]any, error) {
			return map[string]any{"id": "a3"}, nil
		},
	}, nil)

	w, body := doRequest(t, s, http.MethodPost, "/api/monitoring/network-alerts?name=corp&ip_range=192.0.2.0%2F24")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a3", body["alert_id"])

	w, _ = doRequest(t, s, http.MethodPost, "/api/monitoring/network-alerts")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExposureEndpoint(t *testing.T) {
	provider := &fakeProvider{
		exposure: func(domain string) (*shodan.ExposureReport, error) {
			return &shodan.ExposureReport{Domain: domain, TotalIPs: 5}, nil
		},
	}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodGet, "/exposure/example.com")

	require.Equal(t, http.StatusOK, w.Code)
	report := body["report"].(map[string]any)
	assert.Equal(t, "example.com", report["domain"])
	assert.Equal(t, float64(5), report["total_ips"])
}

func TestToggleDemo(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestServer(t, provider, nil)

	w, body := doRequest(t, s, http.MethodPost, "/toggle-demo?enable=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["demo_mode"])
	assert.True(t, provider.demoMode)

	w, _ = doRequest(t, s, http.MethodPost, "/toggle-demo?enable=sideways")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestConnection(t *testing.T) {
	s := newTestServer(t, &fakeProvider{
		apiInfo: func() (map[string]any, error) { return map[string]any{"plan": "dev"}, nil },
	}, nil)

	w, body := doRequest(t, s, http.MethodGet, "/test-connection")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "api_info")

	s = newTestServer(t, &fakeProvider{}, nil)
	w, _ = doRequest(t, s, http.MethodGet, "/test-connection")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &fakeProvider{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/devices", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
