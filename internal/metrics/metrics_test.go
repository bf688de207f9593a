package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveExtraction(t *testing.T) {
	req := require.New(t)
	m := New(prometheus.NewRegistry())

	m.ObserveExtraction("pdf", OutcomeSuccess, 20*time.Millisecond, 2048)
	m.ObserveExtraction("pdf", OutcomeSuccess, 10*time.Millisecond, 4096)
	m.ObserveExtraction("", "unsupported_format", time.Millisecond, 10)

	req.Equal(2.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("pdf", OutcomeSuccess)))
	req.Equal(1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("unknown", "unsupported_format")))
	req.Equal(2, testutil.CollectAndCount(m.ExtractionDuration))
}

func TestObserveExtraction_NilIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.ObserveExtraction("docx", OutcomeSuccess, time.Second, 1)
	})
}

func TestHandler_ServesOwnRegistry(t *testing.T) {
	req := require.New(t)
	m := New(prometheus.NewRegistry())
	m.ObserveExtraction("docx", OutcomeSuccess, time.Millisecond, 100)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	req.NoError(err)
	req.Contains(string(body), `extractions_total{format="docx",outcome="success"} 1`)
	req.Contains(string(body), "upload_size_bytes_count 1")
}
