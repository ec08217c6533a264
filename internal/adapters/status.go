package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

// RemoteRunStatus — текущее состояние удалённого запуска, как его
// сообщает адаптер.
type RemoteRunStatus struct {
	Status    domain.TaskStatus     `json:"status"`
	RawStatus string                `json:"rawStatus,omitempty"`
	Failure   *domain.FailureDetail `json:"failure,omitempty"`
	Progress  map[string]any        `json:"progress,omitempty"`
}

// RunStatusSource отдаёт статус удалённого запуска по адаптеру и его
// внешнему run id. nil без ошибки означает, что адаптер запуск не знает.
type RunStatusSource interface {
	FetchRunStatus(ctx context.Context, adapterID, externalRunID string) (*RemoteRunStatus, error)
}

// StatusClient запрашивает статус запусков у executor endpoints:
// GET {base}/runs/{externalRunID}.
type StatusClient struct {
	endpoints []Endpoint
	client    *http.Client
	logger    *slog.Logger
}

// StatusConfig — конфигурация StatusClient.
type StatusConfig struct {
	// Endpoints — известные адаптеры и их базовые URL.
	Endpoints []Endpoint

	// Timeout — таймаут одного запроса (default: 5s).
	Timeout time.Duration

	// Logger — логгер.
	Logger *slog.Logger
}

// NewStatusClient создаёт StatusClient.
func NewStatusClient(cfg StatusConfig) *StatusClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusClient{
		endpoints: cfg.Endpoints,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// FetchRunStatus запрашивает статус одного запуска.
// 404 от адаптера — не ошибка: запуск неизвестен, возвращается nil.
func (c *StatusClient) FetchRunStatus(ctx context.Context, adapterID, externalRunID string) (*RemoteRunStatus, error) {
	var baseURL string
	for _, ep := range c.endpoints {
		if ep.AdapterID == adapterID {
			baseURL = ep.BaseURL
			break
		}
	}
	if baseURL == "" {
		return nil, fmt.Errorf("no endpoint configured for adapter %s", adapterID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/runs/"+url.PathEscape(externalRunID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch run %s from %s: %w", externalRunID, adapterID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adapter %s returned status %d for run %s",
			adapterID, resp.StatusCode, externalRunID)
	}

	var remote RemoteRunStatus
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decode run status from %s: %w", adapterID, err)
	}
	return &remote, nil
}
