package metrics_test

import (
	"strings"
	"testing"

	"github.com/paperlens/paperlens/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.Denials == nil {
		t.Error("Denials is nil")
	}
	if m.DispatchDuration == nil {
		t.Error("DispatchDuration is nil")
	}
	if m.TokensTotal == nil {
		t.Error("TokensTotal is nil")
	}
	if m.CostTotal == nil {
		t.Error("CostTotal is nil")
	}
	if m.AuditQueueDepth == nil {
		t.Error("AuditQueueDepth is nil")
	}
	if m.ConfigReloads == nil {
		t.Error("ConfigReloads is nil")
	}
}

func TestNew_IndependentInstances(t *testing.T) {
	// Two collectors in one process must not collide on registration.
	a := metrics.New()
	b := metrics.New()

	a.RequestsTotal.WithLabelValues("POST", "/analyze", "200").Inc()
	b.RequestsTotal.WithLabelValues("POST", "/analyze", "200").Inc()

	if a.Handler() == nil || b.Handler() == nil {
		t.Fatal("Handler returned nil")
	}
}

func TestCountersGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RequestsTotal.WithLabelValues("POST", "/analyze", "200").Inc()
	m.Denials.WithLabelValues("quota_exceeded").Add(3)
	m.TokensTotal.WithLabelValues("gpt-4o-mini", "input").Add(1200)
	m.CostTotal.WithLabelValues("gpt-4o-mini").Add(0.00045)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	want := map[string]bool{
		"paperlens_requests_total": false,
		"paperlens_denials_total":  false,
		"paperlens_tokens_total":   false,
		"paperlens_cost_usd_total": false,
	}
	for _, fam := range families {
		if _, ok := want[fam.GetName()]; ok {
			want[fam.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("metric %s not gathered", name)
		}
	}

	for _, fam := range families {
		if !strings.HasPrefix(fam.GetName(), "paperlens_") {
			t.Errorf("metric %s missing namespace", fam.GetName())
		}
	}
}
