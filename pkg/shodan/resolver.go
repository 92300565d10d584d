package shodan

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/models"
)

// ipPattern matches a strict dotted-quad. Octet ranges are deliberately not
// validated; anything of this shape goes down the IP-lookup path.
var ipPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// Resolver turns a dashboard query into device records. IP queries run an
// ordered chain of lookup strategies against the provider; the first one that
// yields records wins and the rest are skipped. Free-text queries are a single
// search call. The resolver never returns an error: every failure degrades to
// an empty result with a logged warning, because the upstream is rate-limited
// and intermittently unavailable and transient faults must not reach the
// caller.
type Resolver struct {
	provider   Provider
	logger     *logrus.Logger
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// NewResolver creates a resolver over the given provider.
func NewResolver(provider Provider, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{
		provider:   provider,
		logger:     logger,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

// SearchDevices resolves a query to device records. The result may be empty
// but is never nil.
func (r *Resolver) SearchDevices(ctx context.Context, query string) []models.DeviceRecord {
	if ipPattern.MatchString(query) {
		return r.lookupIP(ctx, query)
	}
	return r.freeTextSearch(ctx, query)
}

// lookupStrategy is one tier of the IP fallback chain.
type lookupStrategy struct {
	name string
	run  func(ctx context.Context, ip string) ([]models.DeviceRecord, error)
}

func (r *Resolver) lookupIP(ctx context.Context, ip string) []models.DeviceRecord {
	r.logger.Debugf("processing IP query: %s", ip)

	strategies := []lookupStrategy{
		{"direct protocol probe", r.directProbe},
		{"provider host lookup", r.hostLookup},
		{"search fallback", r.searchFallback},
	}

	for _, strategy := range strategies {
		devices, err := strategy.run(ctx, ip)
		if err != nil {
			r.logger.Warnf("%s failed for %s: %v", strategy.name, ip, err)
			continue
		}
		if len(devices) > 0 {
			r.logger.Debugf("%s resolved %s to %d record(s)", strategy.name, ip, len(devices))
			return devices
		}
	}

	r.logger.Warnf("all lookup strategies exhausted for %s, returning empty result", ip)
	return []models.DeviceRecord{}
}

func (r *Resolver) directProbe(ctx context.Context, ip string) ([]models.DeviceRecord, error) {
	device, err := r.provider.HostDirect(ctx, ip)
	if err != nil {
		return nil, err
	}
	return []models.DeviceRecord{*device}, nil
}

// hostLookup calls the canonical host endpoint, retrying exactly once after a
// fixed delay when the upstream reports its request limit reached.
func (r *Resolver) hostLookup(ctx context.Context, ip string) ([]models.DeviceRecord, error) {
	device, err := r.provider.Host(ctx, ip)
	if err != nil && isRateLimited(err) {
		r.logger.Warnf("request limit reached, waiting %s before retry", r.retryDelay)
		r.sleep(r.retryDelay)
		device, err = r.provider.Host(ctx, ip)
	}
	if err != nil {
		return nil, err
	}
	return []models.DeviceRecord{*device}, nil
}

func (r *Resolver) searchFallback(ctx context.Context, ip string) ([]models.DeviceRecord, error) {
	return r.provider.Search(ctx, "ip:"+ip)
}

func (r *Resolver) freeTextSearch(ctx context.Context, query string) []models.DeviceRecord {
	r.logger.Debugf("processing search query: %s", query)

	matches, err := r.provider.Search(ctx, query)
	if err != nil {
		r.logger.Warnf("search failed for %q: %v", query, err)
		return []models.DeviceRecord{}
	}
	if matches == nil {
		matches = []models.DeviceRecord{}
	}
	return matches
}
