package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordRecords("heatmap", "file", OutcomeKept, 3)
	a.RecordRecords("wordcloud", "file", OutcomeKept, 5)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.RecordsTotal.WithLabelValues("heatmap", "file", OutcomeKept)))
	assert.Equal(t, 5.0, testutil.ToFloat64(a.RecordsTotal.WithLabelValues("wordcloud", "file", OutcomeKept)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsTotal.WithLabelValues("heatmap", "file", OutcomeKept)))
}

func TestRecordRecords_IgnoresZero(t *testing.T) {
	m := New()
	m.RecordRecords("wordcloud", "notion", OutcomeSkipped, 0)
	assert.Equal(t, 0, testutil.CollectAndCount(m.RecordsTotal))
}

func TestRecordRun(t *testing.T) {
	m := New()
	finished := time.Unix(1700000000, 0)

	m.RecordRun("heatmap", 2*time.Second, nil, finished)
	m.RecordRun("heatmap", time.Second, errors.New("boom"), finished.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("heatmap", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("heatmap", "error")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccessSeconds.WithLabelValues("heatmap")))
}

func TestRecordGridAndTags(t *testing.T) {
	m := New()
	m.RecordGrid(365, 120)
	m.RecordTags(42)

	assert.Equal(t, 365.0, testutil.ToFloat64(m.GridCells))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.GridActiveDays))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TagsDistinct))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordGrid(31, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "activitymap_grid_cells 31")
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.RecordTags(7)
	require.NoError(t, m.Push(context.Background(), srv.URL, "activitymap"))

	assert.Equal(t, "/metrics/job/activitymap", gotPath)
	assert.True(t, strings.Contains(gotBody, "activitymap_tags_distinct"), "protobuf body names the metric")
}

func TestPush_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "activitymap")
	assert.Error(t, err)
}
