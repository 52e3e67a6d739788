package fetcher

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"shelfstalk/internal/config"
)

// ProxyManager rotates outbound requests across a proxy pool.
type ProxyManager struct {
	proxies  []*proxyEntry
	rotation string
	index    atomic.Int64
	mu       sync.RWMutex
	logger   *slog.Logger
}

type proxyEntry struct {
	URL     *url.URL
	Healthy bool
	LastErr error
	LastUse time.Time
	mu      sync.Mutex
}

// NewProxyManager creates a ProxyManager from configuration. Invalid proxy
// URLs are dropped with a warning.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*proxyEntry, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil {
			logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, &proxyEntry{
			URL:     u,
			Healthy: true,
		})
	}

	logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

type proxyCtxKey struct{}

// WithProxy stamps the chosen proxy into a request context so the transport
// routes through the same proxy the caller can later mark failed.
func WithProxy(ctx context.Context, proxy *url.URL) context.Context {
	return context.WithValue(ctx, proxyCtxKey{}, proxy)
}

// ProxyFunc returns an http.Transport-compatible proxy function. A proxy
// stamped on the request context wins over rotation.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if proxy, ok := req.Context().Value(proxyCtxKey{}).(*url.URL); ok {
			return proxy, nil
		}
		proxy := pm.Next()
		if proxy == nil {
			return nil, nil // No proxy = direct connection
		}
		return proxy, nil
	}
}

// Next returns the next proxy URL based on the rotation strategy.
func (pm *ProxyManager) Next() *url.URL {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	healthy := pm.healthyProxies()
	if len(healthy) == 0 {
		return nil
	}

	var entry *proxyEntry
	switch pm.rotation {
	case "random":
		entry = healthy[rand.Intn(len(healthy))]
	default: // round_robin
		idx := pm.index.Add(1) % int64(len(healthy))
		entry = healthy[idx]
	}

	entry.mu.Lock()
	entry.LastUse = time.Now()
	entry.mu.Unlock()
	return entry.URL
}

// MarkFailed marks a proxy as unhealthy so rotation skips it.
func (pm *ProxyManager) MarkFailed(proxyURL *url.URL, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, p := range pm.proxies {
		if p.URL.String() == proxyURL.String() {
			p.mu.Lock()
			p.Healthy = false
			p.LastErr = err
			p.mu.Unlock()
			pm.logger.Warn("proxy marked unhealthy", "proxy", proxyURL.Host, "error", err)
			break
		}
	}
}

// Count returns the total number of proxies.
func (pm *ProxyManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.proxies)
}

// HealthyCount returns the number of healthy proxies.
func (pm *ProxyManager) HealthyCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.healthyProxies())
}

func (pm *ProxyManager) healthyProxies() []*proxyEntry {
	healthy := make([]*proxyEntry, 0, len(pm.proxies))
	for _, p := range pm.proxies {
		p.mu.Lock()
		if p.Healthy {
			healthy = append(healthy, p)
		}
		p.mu.Unlock()
	}
	return healthy
}
