package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthService_ProbeAndCache(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	h := NewHealthService(HealthConfig{
		Endpoints: []Endpoint{{AdapterID: "opentrons_ot2", BaseURL: srv.URL}},
	})
	ctx := context.Background()

	// До первого probe кэш пуст
	status := h.CheckAdapter(ctx, "opentrons_ot2", false)
	if status.Healthy || status.Detail != "never probed" {
		t.Errorf("cold cache: %+v", status)
	}

	status = h.CheckAdapter(ctx, "opentrons_ot2", true)
	if !status.Healthy || !status.Probed {
		t.Errorf("live probe: %+v", status)
	}

	// Endpoint упал; кэш всё ещё отдаёт последний известный статус
	healthy = false
	status = h.CheckAdapter(ctx, "opentrons_ot2", false)
	if !status.Healthy || status.Probed {
		t.Errorf("cached status: %+v", status)
	}

	// Live probe видит отказ и обновляет кэш
	status = h.CheckAdapter(ctx, "opentrons_ot2", true)
	if status.Healthy {
		t.Errorf("probe after failure: %+v", status)
	}
	status = h.CheckAdapter(ctx, "opentrons_ot2", false)
	if status.Healthy {
		t.Errorf("cache after failed probe: %+v", status)
	}
}

func TestHealthService_UnknownAdapter(t *testing.T) {
	h := NewHealthService(HealthConfig{})
	status := h.CheckAdapter(context.Background(), "mystery", true)
	if status.Healthy {
		t.Error("adapter without endpoint reported healthy")
	}
	if status.Detail != "no endpoint configured" {
		t.Errorf("detail = %q", status.Detail)
	}
}

func TestEndpointsFromEnv(t *testing.T) {
	t.Setenv("CL_ADAPTER_ENDPOINTS", "opentrons_ot2=http://ot2:9100/, integra_assist_plus=http://integra:9101")
	endpoints := EndpointsFromEnv()
	if len(endpoints) != 2 {
		t.Fatalf("endpoints = %d", len(endpoints))
	}
	if endpoints[0].AdapterID != "opentrons_ot2" || endpoints[0].BaseURL != "http://ot2:9100" {
		t.Errorf("first endpoint: %+v", endpoints[0])
	}
	if endpoints[1].AdapterID != "integra_assist_plus" {
		t.Errorf("second endpoint: %+v", endpoints[1])
	}

	t.Setenv("CL_ADAPTER_ENDPOINTS", "")
	if got := EndpointsFromEnv(); got != nil {
		t.Errorf("empty env: %+v", got)
	}
}

func TestRunbook_KnownCodes(t *testing.T) {
	entry, ok := LookupRunbook("EXECUTOR_EXCEPTION")
	if !ok {
		t.Fatal("EXECUTOR_EXCEPTION missing from runbook")
	}
	if len(entry.Actions) == 0 {
		t.Error("entry has no actions")
	}

	if _, ok := LookupRunbook("NOT_A_CODE"); ok {
		t.Error("unknown code resolved")
	}

	codes := RunbookCodes()
	if len(codes) < 5 {
		t.Errorf("runbook unexpectedly small: %d codes", len(codes))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %s >= %s", codes[i-1], codes[i])
		}
	}
}
