package log

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestPrometheusHookCountsByLevel(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	hook, err := NewPrometheusHook(registry, "pagewiki")
	if err != nil {
		t.Fatalf("NewPrometheusHook returned error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(hook)

	logger.Info("one")
	logger.Info("two")
	logger.Error("three")

	if got := testutil.ToFloat64(hook.counter.WithLabelValues("info")); got != 2 {
		t.Fatalf("expected 2 info statements, got %v", got)
	}
	if got := testutil.ToFloat64(hook.counter.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 error statement, got %v", got)
	}

	if _, err := NewPrometheusHook(registry, "pagewiki"); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
