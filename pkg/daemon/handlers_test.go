package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/apportion/pkg/allocation"
	"github.com/charlie0129/apportion/pkg/config"
	"github.com/charlie0129/apportion/pkg/events"
	"github.com/charlie0129/apportion/pkg/types"
	"github.com/charlie0129/apportion/pkg/version"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apportion.json")
	setup(config.NewFileFromConfig(nil, path))
	return setupRoutes(), path
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createTestAllocation(t *testing.T, r http.Handler, req types.CreateRequest) *allocation.Allocation {
	t.Helper()
	w := do(t, r, http.MethodPost, "/allocations", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[allocation.Result](t, w).Allocation
}

func TestVersionAndConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, version.Version, decode[string](t, w))

	w = do(t, r, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	fc := decode[config.RawFileConfig](t, w)
	require.NotNil(t, fc.Precision)
	assert.Equal(t, 4, *fc.Precision)
	require.NotNil(t, fc.Magnitude)
	assert.Equal(t, 0.01, *fc.Magnitude)
}

func TestAllocationLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	a := createTestAllocation(t, r, types.CreateRequest{Name: "colors", Labels: []string{"red", "green", "blue", "gray"}})
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, a.Shares())
	base := "/allocations/" + a.ID.String()

	w := do(t, r, http.MethodGet, "/allocations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]*allocation.Allocation](t, w), 1)

	w = do(t, r, http.MethodPut, base+"/increment", types.IndexRequest{Index: 0})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[allocation.Result](t, w)
	assert.True(t, res.Adjusted)
	assert.InDelta(t, 0.26, res.Allocation.Items[0].Share, 1e-9)

	w = do(t, r, http.MethodPut, base+"/decrement", types.IndexRequest{Index: 0})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 0.25, decode[allocation.Result](t, w).Allocation.Items[0].Share, 1e-9)

	w = do(t, r, http.MethodPut, base+"/shift", types.ShiftRequest{Index: 1, Magnitude: 0.15})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 0.4, decode[allocation.Result](t, w).Allocation.Items[1].Share, 1e-9)

	w = do(t, r, http.MethodPut, base+"/edit", types.EditRequest{Index: 2, Text: "0%"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.InDelta(t, 0, decode[allocation.Result](t, w).Allocation.Items[2].Share, 1e-9)

	w = do(t, r, http.MethodPut, base+"/remove", types.IndexRequest{Index: 2})
	require.Equal(t, http.StatusCreated, w.Code)
	res = decode[allocation.Result](t, w)
	require.Len(t, res.Allocation.Items, 3)
	assert.Equal(t, "gray", res.Allocation.Items[2].Label)

	w = do(t, r, http.MethodPut, base+"/reset", types.ForceRequest{Force: true})
	require.Equal(t, http.StatusCreated, w.Code)
	res = decode[allocation.Result](t, w)
	assert.True(t, res.Adjusted)
	for _, it := range res.Allocation.Items {
		assert.InDelta(t, 1.0/3, it.Share, 1e-12)
	}

	w = do(t, r, http.MethodPut, base+"/recalibrate", types.ForceRequest{})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[allocation.Result](t, w).Adjusted)

	w = do(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "colors", decode[allocation.Allocation](t, w).Name)

	w = do(t, r, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorStatus(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createTestAllocation(t, r, types.CreateRequest{Name: "x", Percents: []float64{0.5, 0.5}})
	base := "/allocations/" + a.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"empty name", http.MethodPost, "/allocations", types.CreateRequest{Name: "", Labels: []string{"a"}}, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/allocations", "not an object", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/allocations/nope", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/allocations/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown id on shift", http.MethodPut, "/allocations/" + uuid.NewString() + "/shift", types.ShiftRequest{Magnitude: 0.1}, http.StatusNotFound},
		{"index out of range", http.MethodPut, base + "/increment", types.IndexRequest{Index: 7}, http.StatusBadRequest},
		{"magnitude out of range", http.MethodPut, base + "/shift", types.ShiftRequest{Magnitude: 1.5}, http.StatusBadRequest},
		{"unparsable edit", http.MethodPut, base + "/edit", types.EditRequest{Text: "lots"}, http.StatusBadRequest},
		{"remove out of range", http.MethodPut, base + "/remove", types.IndexRequest{Index: -1}, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/allocations/" + uuid.NewString(), nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	// Nothing above may have touched the shares.
	got, err := store.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, got.Shares())
}

func TestSchedule(t *testing.T) {
	r, path := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.ScheduleStatus](t, w).Expr)

	w = do(t, r, http.MethodPut, "/schedule", types.ScheduleRequest{Expr: "@every 1h"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[types.ScheduleStatus](t, w)
	assert.Equal(t, "@every 1h", st.Expr)
	assert.False(t, st.NextRun.IsZero())
	assert.Equal(t, "@every 1h", conf.RecalibrateSchedule())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "@every 1h")

	w = do(t, r, http.MethodPut, "/schedule/skip", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, decode[types.ScheduleStatus](t, w).NextRun.After(st.NextRun))

	w = do(t, r, http.MethodPut, "/schedule", types.ScheduleRequest{Expr: "every now and then"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "@every 1h", conf.RecalibrateSchedule())

	w = do(t, r, http.MethodPut, "/schedule", types.ScheduleRequest{Expr: ""})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode[types.ScheduleStatus](t, w).NextRun.IsZero())

	w = do(t, r, http.MethodPut, "/schedule/skip", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecalibrateAllTask(t *testing.T) {
	newTestRouter(t)

	_, err := store.Create("x", nil, []float64{0.5, 0.5})
	require.NoError(t, err)
	require.NoError(t, recalibrateAll())
}

func TestStreamEvents(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	res, err := store.Create("x", []string{"a", "b"}, nil)
	require.NoError(t, err)

	var name, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if line == "" && data != "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(v)
		}
	}
	require.NoError(t, sc.Err())

	assert.Equal(t, events.SeriesChanged, name)
	ev, err := events.DecodeAs[events.SeriesChangedEvent](events.Event{Name: name, Data: json.RawMessage(data)})
	require.NoError(t, err)
	assert.Equal(t, res.Allocation.ID.String(), ev.ID)
	assert.Equal(t, events.OpCreate, ev.Op)
	assert.Equal(t, []float64{0.5, 0.5}, ev.Shares)
}
