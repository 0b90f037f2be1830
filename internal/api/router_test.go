package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/openscreen/internal/api/handlers"
	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
	"github.com/wonny/openscreen/internal/execution"
	"github.com/wonny/openscreen/internal/report"
	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/internal/selection"
	"github.com/wonny/openscreen/pkg/config"
	"github.com/wonny/openscreen/pkg/logger"
)

const sampleCSV = `Date,Time,Symbol,Open,High,Low,Close,Volume
2024-01-15,09:15,AAA,100,105,100,104,5000
2024-01-15,09:15,BBB,100,100,95,96,8000
2024-01-15,09:15,CCC,10,12,9,11,9000
`

type testServer struct {
	handler  http.Handler
	registry *screening.Registry
	hub      *handlers.StreamHub
}

func newTestServer(t *testing.T, apiCfg config.APIConfig) *testServer {
	t.Helper()
	log := logger.Nop()

	engine := screening.NewEngine(
		selection.NewScreener(selection.DefaultScreenerConfig(), log),
		execution.NewPlanner(execution.DefaultPlannerConfig(), log),
		"hash123",
		log,
	)
	registry := screening.NewRegistry(engine)
	hub := handlers.NewStreamHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)
	registry.Subscribe(hub.Publish)

	dh := handlers.NewDatasetHandler(
		registry,
		csvio.NewReader(log),
		contracts.ScreenRequest{Mode: contracts.ModeOpenLow},
		apiCfg.MaxUploadBytes(),
		log,
	)
	hh := handlers.NewHealthHandler(registry, hub, "test_profile", "hash123", time.Hour)

	return &testServer{
		handler:  NewRouter(dh, hh, hub, apiCfg, log),
		registry: registry,
		hub:      hub,
	}
}

func defaultAPIConfig() config.APIConfig {
	return config.APIConfig{MaxUploadMB: 1, RateLimit: 1000, RateBurst: 1000}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, csv string) string {
	t.Helper()
	rec := s.do(t, "POST", "/api/datasets?name=sample.csv", []byte(csv), "text/csv")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp handlers.DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	rec := s.do(t, "GET", "/health", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "hash123", body["profile_hash"])
	assert.Equal(t, 0.0, body["datasets"].(map[string]interface{})["total_count"])
}

func TestModes(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	rec := s.do(t, "GET", "/api/modes", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"openHighLow"`)
	assert.Contains(t, rec.Body.String(), `"P2_SCREEN"`)

	var resp struct {
		Roles []struct {
			Role     string   `json:"role"`
			Keywords []string `json:"keywords"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Roles)
	assert.Equal(t, "symbol", resp.Roles[0].Role)
	assert.Contains(t, resp.Roles[0].Keywords, "ticker")
}

func TestUpload_Raw(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	rec := s.do(t, "POST", "/api/datasets?name=sample.csv", []byte(sampleCSV), "text/csv")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp handlers.DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sample.csv", resp.Name)
	assert.Equal(t, 3, resp.Rows)
	assert.Empty(t, resp.Missing)
	assert.Equal(t, "Symbol", resp.Roles["symbol"])
	assert.Equal(t, 1, s.registry.Len())
}

func TestUpload_Multipart(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "quotes.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := s.do(t, "POST", "/api/datasets", buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"quotes.csv"`)
}

func TestUpload_Errors(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())

	rec := s.do(t, "POST", "/api/datasets", nil, "text/csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := "Symbol,Open\n" + strings.Repeat("AAA,1\n", 300_000)
	rec = s.do(t, "POST", "/api/datasets", []byte(big), "text/csv")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, s.registry.Len())
}

func TestScreenAndExport(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	rec := s.do(t, "POST", "/api/datasets/"+id+"/screen", []byte(`{"mode":"openHigh"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.ScreenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Filter: openHigh — results 1. Selected BUY: None | SELL: BBB", resp.Summary)
	require.Len(t, resp.Result.Plans, 1)
	assert.Equal(t, contracts.SideSell, resp.Result.Plans[0].Side)

	rec = s.do(t, "GET", "/api/datasets/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view handlers.ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, 1, view.Total)
	assert.Equal(t, contracts.LabelSell, view.Items[0].Label)
	assert.Equal(t, "https://www.tradingview.com/chart/?symbol=NSE%3ABBB", view.Items[0].ChartURL)

	rec = s.do(t, "GET", "/api/datasets/"+id+"/export.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), csvio.DefaultExportName)
	assert.Equal(t, "Symbol,Open,High,Low,Close,Volume,Label\nBBB,100,100,95,96,8000,SELL\n", rec.Body.String())

	rec = s.do(t, "GET", "/api/datasets/"+id+"/export.pdf", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.DefaultPDFName)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestScreen_DefaultsAndValidation(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	// empty body falls back to the configured default mode
	rec := s.do(t, "POST", "/api/datasets/"+id+"/screen", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Filter: openLow")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown mode", `{"mode":"openMiddle"}`, http.StatusBadRequest},
		{"negative gain", `{"mode":"full","min_gain_pct":-1}`, http.StatusBadRequest},
		{"bad json", `{"mode":`, http.StatusBadRequest},
		{"unknown field", `{"mdoe":"full"}`, http.StatusBadRequest},
		{"missing full columns", `{"mode":"full"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "POST", "/api/datasets/"+id+"/screen", []byte(tt.body), "application/json")
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	rec = s.do(t, "POST", "/api/datasets/"+id+"/screen", []byte(`{"mode":"full"}`), "application/json")
	assert.Contains(t, rec.Body.String(), "full screener requires Volume, Avg Volume (5d), Close and Market Cap columns")
}

func TestScreen_MissingOHL(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, "Symbol,Close\nAAA,10\n")

	rec := s.do(t, "POST", "/api/datasets/"+id+"/screen", []byte(`{"mode":"openHigh"}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSV must include Open, High and Low columns")
}

func TestClearAndEmptyExport(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	rec := s.do(t, "POST", "/api/datasets/"+id+"/screen", []byte(`{"mode":"openHighLow"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, ext := range []string{"csv", "pdf"} {
		rec = s.do(t, "GET", "/api/datasets/"+id+"/export."+ext, nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, ext)
		assert.Contains(t, rec.Body.String(), "no data to download", ext)
	}

	rec = s.do(t, "POST", "/api/datasets/"+id+"/clear", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Summary)

	rec = s.do(t, "GET", "/api/datasets/"+id+"/export.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Symbol,Open,High,Low,Close,Volume,Label\n"))
}

func TestGet_Paging(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	rec := s.do(t, "GET", "/api/datasets/"+id+"?offset=1&limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view handlers.ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Total)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "BBB", view.Items[0].Cells["Symbol"])
}

func TestGet_PagingBounds(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	tests := []struct {
		query string
		items int
	}{
		{"offset=1&limit=9223372036854775807", 2},
		{"offset=9223372036854775807&limit=1", 0},
		{"offset=0&limit=0", 3},
		{"offset=2&limit=5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, "GET", "/api/datasets/"+id+"?"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var view handlers.ViewResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
			assert.Equal(t, 3, view.Total)
			assert.Len(t, view.Items, tt.items)
		})
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	id := s.upload(t, sampleCSV)

	rec := s.do(t, "GET", "/api/datasets", nil, "")
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, "DELETE", "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, path := range []string{"/api/datasets/" + id, "/api/datasets/" + id + "/export.csv"} {
		rec = s.do(t, "GET", path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec = s.do(t, "DELETE", "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, config.APIConfig{MaxUploadMB: 1, RateLimit: 0.001, RateBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do(t, "GET", "/api/datasets", nil, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is outside the limited subrouter
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/health", nil, "").Code)
}

func TestStream(t *testing.T) {
	s := newTestServer(t, defaultAPIConfig())
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg handlers.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "CONNECTED", msg.Type)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.upload(t, sampleCSV)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "EVENT", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, screening.EventLoaded, msg.Event.Type)
	assert.Equal(t, 3, msg.Event.Rows)
}
