package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/arencloud/strata/internal/errs"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{errs.Backendf("boom"), "backend"},
		{errs.ConnectionNotFound("x"), "connection_not_found"},
		{errors.New("plain"), "unknown"},
	}
	for _, c := range cases {
		if got := Outcome(c.err); got != c.want {
			t.Fatalf("Outcome(%v)=%q want %q", c.err, got, c.want)
		}
	}
}

func TestObserveOperation(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("read", "backend"))
	ObserveOperation("read", time.Now(), errs.Backendf("timeout"))
	after := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues("read", "backend"))
	if after != before+1 {
		t.Fatalf("counter %v -> %v", before, after)
	}

	HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/health").Observe(0.001)
	BytesUploadedTotal.Add(1024)
	BytesDownloadedTotal.Add(2048)
	Connections.Set(3)
}
