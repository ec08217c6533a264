package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/clock"
)

// defaultProbeTimeout — таймаут одного live probe.
// Probe никогда не вешает вызывающий цикл (см. модель ресурсов системы).
const defaultProbeTimeout = 5 * time.Second

// Endpoint — известный executor endpoint одного адаптера.
type Endpoint struct {
	AdapterID string `json:"adapterId"`
	BaseURL   string `json:"baseUrl"`
}

// HealthStatus — результат проверки одного адаптера.
type HealthStatus struct {
	AdapterID string    `json:"adapterId"`
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`

	// Probed — true, если статус получен live round-trip'ом,
	// false — из кэша last-known.
	Probed bool `json:"probed"`
}

// HealthService проверяет доступность executor endpoints.
type HealthService struct {
	endpoints []Endpoint
	client    *http.Client
	clock     clock.Clock
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]HealthStatus
}

// HealthConfig — конфигурация HealthService.
type HealthConfig struct {
	// Endpoints — известные адаптеры и их базовые URL.
	Endpoints []Endpoint

	// ProbeTimeout — таймаут live probe (default: 5s).
	ProbeTimeout time.Duration

	// Clock — источник времени (default: системные часы).
	Clock clock.Clock

	// Logger — логгер.
	Logger *slog.Logger
}

// NewHealthService создаёт HealthService.
func NewHealthService(cfg HealthConfig) *HealthService {
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	c := cfg.Clock
	if c == nil {
		c = clock.System()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		endpoints: cfg.Endpoints,
		client:    &http.Client{Timeout: timeout},
		clock:     c,
		logger:    logger,
		cache:     make(map[string]HealthStatus),
	}
}

// EndpointsFromEnv читает CL_ADAPTER_ENDPOINTS в формате
// "adapter=url,adapter=url".
func EndpointsFromEnv() []Endpoint {
	raw := os.Getenv("CL_ADAPTER_ENDPOINTS")
	if raw == "" {
		return nil
	}
	var endpoints []Endpoint
	for _, pair := range strings.Split(raw, ",") {
		adapterID, baseURL, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || adapterID == "" || baseURL == "" {
			continue
		}
		endpoints = append(endpoints, Endpoint{
			AdapterID: adapterID,
			BaseURL:   strings.TrimRight(baseURL, "/"),
		})
	}
	return endpoints
}

// Check возвращает статус всех известных адаптеров.
// probe=true — live round-trip к каждому endpoint, иначе кэш last-known
// (адаптер без кэшированного статуса отдаётся как unhealthy "never probed").
func (h *HealthService) Check(ctx context.Context, probe bool) []HealthStatus {
	statuses := make([]HealthStatus, 0, len(h.endpoints))
	for _, ep := range h.endpoints {
		statuses = append(statuses, h.CheckAdapter(ctx, ep.AdapterID, probe))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].AdapterID < statuses[j].AdapterID })
	return statuses
}

// CheckAdapter возвращает статус одного адаптера.
func (h *HealthService) CheckAdapter(ctx context.Context, adapterID string, probe bool) HealthStatus {
	if !probe {
		h.mu.RLock()
		cached, ok := h.cache[adapterID]
		h.mu.RUnlock()
		if ok {
			cached.Probed = false
			return cached
		}
		return HealthStatus{
			AdapterID: adapterID,
			Healthy:   false,
			Detail:    "never probed",
			CheckedAt: h.clock.Now(),
		}
	}

	status := h.probe(ctx, adapterID)
	h.mu.Lock()
	h.cache[adapterID] = status
	h.mu.Unlock()
	return status
}

// probe выполняет live round-trip.
func (h *HealthService) probe(ctx context.Context, adapterID string) HealthStatus {
	status := HealthStatus{
		AdapterID: adapterID,
		CheckedAt: h.clock.Now(),
		Probed:    true,
	}

	var baseURL string
	for _, ep := range h.endpoints {
		if ep.AdapterID == adapterID {
			baseURL = ep.BaseURL
			break
		}
	}
	if baseURL == "" {
		status.Detail = "no endpoint configured"
		return status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}

	resp, err := h.client.Do(req)
	if err != nil {
		status.Detail = err.Error()
		h.logger.Debug("adapter probe failed", "adapter_id", adapterID, "error", err)
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Detail = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return status
	}

	status.Healthy = true
	return status
}
