package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/segment-cli/internal/dataset"
	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/segment"
)

func testDataset() *dataset.Dataset {
	m := func(year, month int, key, name string, seg model.Segment, profit, compliance float64) model.MonthlySegment {
		return model.MonthlySegment{
			Year: year, Month: month, CustomerKey: key, Name: name, Segment: seg,
			Profit: profit, PercentCompliance: compliance, Income: profit * 2, BudgetProfit: profit,
		}
	}
	return dataset.New(nil, &segment.Result{
		Customers: []model.CustomerSegment{
			{CustomerKey: "CLT-001", Name: "Customer 1", Profit: 1500.555, Segment: 4},
			{CustomerKey: "CLT-002", Name: "Customer 2", Profit: -400, Segment: 1},
		},
		Monthly: []model.MonthlySegment{
			m(2024, 6, "CLT-001", "Customer 1", 4, 1000, 80),
			m(2024, 7, "CLT-001", "Customer 1", 4, 500.555, 60),
			m(2024, 6, "CLT-002", "Customer 2", 1, -400, 10),
		},
	})
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(testDataset(), opts))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

type testEnvelope[T any] struct {
	Period  string `json:"period"`
	Records int    `json:"records"`
	Empty   bool   `json:"empty"`
	Data    []T    `json:"data"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["run_id"])
}

func TestPeriods(t *testing.T) {
	srv := newTestServer(t, Options{})

	var p dataset.Periods
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/periods", &p))
	assert.Equal(t, []int{2024}, p.Years)
	require.Len(t, p.Months, 13)
	assert.Equal(t, "All months", p.Months[0].Label)
}

func TestSegments(t *testing.T) {
	srv := newTestServer(t, Options{})

	var env testEnvelope[dataset.Bubble]
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/segments?year=2024", &env))
	assert.Equal(t, "All months 2024", env.Period)
	assert.Equal(t, 3, env.Records)
	assert.False(t, env.Empty)
	require.Len(t, env.Data, 2)
	assert.Equal(t, model.Segment(1), env.Data[0].Segment)
	assert.InDelta(t, -400.0, env.Data[0].TotalProfit, 1e-9)
	assert.Equal(t, model.Segment(4), env.Data[1].Segment)
	assert.InDelta(t, 1500.56, env.Data[1].TotalProfit, 1e-9)
	assert.InDelta(t, 70.0, env.Data[1].AvgCompliance, 1e-9)
	assert.Equal(t, 1, env.Data[1].Customers)
}

func TestSegments_EmptyPeriod(t *testing.T) {
	srv := newTestServer(t, Options{})

	var env testEnvelope[dataset.Bubble]
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/segments?year=2030&month=2", &env))
	assert.True(t, env.Empty)
	assert.Equal(t, "February 2030", env.Period)
	assert.Empty(t, env.Data)
}

func TestCustomers_SegmentFilter(t *testing.T) {
	srv := newTestServer(t, Options{})

	var env testEnvelope[dataset.CustomerPoint]
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/customers?year=2024&month=6&segment=Segment%201", &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "CLT-002", env.Data[0].CustomerKey)
	assert.InDelta(t, -400.0, env.Data[0].Profit, 1e-9)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/customers?year=2024&segment=all", &env))
	assert.Len(t, env.Data, 2)
}

func TestTable_NameSearch(t *testing.T) {
	srv := newTestServer(t, Options{})

	var env testEnvelope[dataset.TableRow]
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/table?year=2024&q=customer%202", &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Customer 2", env.Data[0].Name)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/table?year=2024&q=%20", &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, "CLT-001", env.Data[0].CustomerKey)
}

func TestLifetime(t *testing.T) {
	srv := newTestServer(t, Options{})

	var env testEnvelope[model.CustomerSegment]
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/segments/lifetime", &env))
	require.Len(t, env.Data, 2)
	assert.InDelta(t, 1500.56, env.Data[0].Profit, 1e-9)
	assert.Equal(t, model.Segment(1), env.Data[1].Segment)
}

func TestBadQueries(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"missing year", "/api/v1/segments", "year is required"},
		{"non-numeric year", "/api/v1/segments?year=abc", "year must be a number"},
		{"month out of range", "/api/v1/customers?year=2024&month=13", "month must be 0..12"},
		{"month non-numeric", "/api/v1/table?year=2024&month=june", "month must be a number"},
		{"bad segment", "/api/v1/customers?year=2024&segment=Segment%209", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+tt.path, &body))
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 1})

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, http.StatusTooManyRequests, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "rate limit exceeded", body["error"])
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigins: []string{"https://dash.example.com"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dash.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
