package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve("127.0.0.1:0")
	defer srv.Close()

	TicksTotal.WithLabelValues("BTC-GBP").Inc()
	OrdersTotal.WithLabelValues("BTC-GBP", "BUY", "filled").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{"tradebot_ticks_total": false, "tradebot_orders_total": false}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s metric not found", name)
		}
	}
}

func TestScoreGauge(t *testing.T) {
	Score.WithLabelValues("ETH-GBP").Set(0.625)
	if got := testutil.ToFloat64(Score.WithLabelValues("ETH-GBP")); got != 0.625 {
		t.Fatalf("score gauge = %v, want 0.625", got)
	}
}
