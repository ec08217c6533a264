package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brad-usredoxlabs/computable-lab-sub000/internal/domain"
)

func TestStatusClient_FetchRunStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/runs/ext-run-9":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"failed","rawStatus":"failed","failure":{"code":"EXECUTOR_EXCEPTION","class":"transient"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewStatusClient(StatusConfig{
		Endpoints: []Endpoint{{AdapterID: "opentrons_ot2", BaseURL: srv.URL}},
	})
	ctx := context.Background()

	remote, err := c.FetchRunStatus(ctx, "opentrons_ot2", "ext-run-9")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if remote.Status != domain.TaskStatusFailed {
		t.Errorf("status = %s", remote.Status)
	}
	if remote.Failure == nil || remote.Failure.Class != domain.FailureClassTransient {
		t.Errorf("failure = %+v", remote.Failure)
	}

	// Неизвестный запуск — nil без ошибки
	remote, err = c.FetchRunStatus(ctx, "opentrons_ot2", "ext-run-missing")
	if err != nil {
		t.Fatalf("fetch missing: %v", err)
	}
	if remote != nil {
		t.Errorf("missing run returned %+v", remote)
	}

	// Несконфигурированный адаптер — ошибка
	if _, err := c.FetchRunStatus(ctx, "pylabrobot", "ext-run-9"); err == nil {
		t.Error("unknown adapter accepted")
	}
}
