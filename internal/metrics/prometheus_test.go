package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandler_ExposesRegisteredCollectors(t *testing.T) {
	InitMetrics()
	InitMetrics()
	Disbands.WithLabelValues("expired").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), `partybot_disbands_total{reason="expired"}`) {
		t.Fatalf("expected disband counter in output, got:\n%s", body)
	}
}

func TestActivePartiesGauge(t *testing.T) {
	ActiveParties.Set(3)
	if got := testutil.ToFloat64(ActiveParties); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}
