package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/segment-cli/internal/dataset"
	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/money"
)

type handler struct {
	ds *dataset.Dataset
}

// envelope wraps every filtered response. Empty marks the "no data" state.
type envelope struct {
	Period  string `json:"period"`
	Records int    `json:"records"`
	Empty   bool   `json:"empty"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseQuery reads year, month, segment and q from the URL.
func parseQuery(r *http.Request) (dataset.Query, error) {
	var q dataset.Query
	v := r.URL.Query()

	year := v.Get("year")
	if year == "" {
		return q, eris.New("year is required")
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return q, eris.Errorf("year must be a number, got %q", year)
	}
	q.Year = y

	if month := v.Get("month"); month != "" {
		m, err := strconv.Atoi(month)
		if err != nil {
			return q, eris.Errorf("month must be a number, got %q", month)
		}
		q.Month = m
	}

	if seg := strings.TrimSpace(v.Get("segment")); seg != "" && !strings.EqualFold(seg, "all") {
		s, err := model.ParseSegment(seg)
		if err != nil {
			return q, err
		}
		q.Segment = s
	}

	q.Name = v.Get("q")

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) (dataset.Query, bool) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return q, false
	}
	return q, true
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "run_id": h.ds.RunID()})
}

func (h *handler) periods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ds.Periods())
}

func (h *handler) segments(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	q.Segment = 0

	bubbles := h.ds.Bubbles(q)
	for i := range bubbles {
		bubbles[i].TotalProfit = money.Round(bubbles[i].TotalProfit)
		bubbles[i].AvgCompliance = money.Round(bubbles[i].AvgCompliance)
	}
	ov := h.ds.Overview(q)
	writeJSON(w, http.StatusOK, envelope{Period: ov.Period, Records: ov.Records, Empty: len(bubbles) == 0, Data: bubbles})
}

func (h *handler) customers(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	points := h.ds.DrillDown(q)
	for i := range points {
		points[i].Profit = money.Round(points[i].Profit)
		points[i].Compliance = money.Round(points[i].Compliance)
		points[i].Income = money.Round(points[i].Income)
		points[i].BudgetProfit = money.Round(points[i].BudgetProfit)
	}
	writeJSON(w, http.StatusOK, envelope{Period: q.PeriodLabel(), Records: len(points), Empty: len(points) == 0, Data: points})
}

func (h *handler) table(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	rows := h.ds.CustomerTable(q)
	for i := range rows {
		rows[i].Profit = money.Round(rows[i].Profit)
	}
	writeJSON(w, http.StatusOK, envelope{Period: q.PeriodLabel(), Records: len(rows), Empty: len(rows) == 0, Data: rows})
}

func (h *handler) lifetime(w http.ResponseWriter, _ *http.Request) {
	customers := h.ds.Customers()
	for i := range customers {
		c := &customers[i]
		c.Profit = money.Round(c.Profit)
		c.BudgetProfit = money.Round(c.BudgetProfit)
		c.Income = money.Round(c.Income)
		c.PercentCompliance = money.Round(c.PercentCompliance)
	}
	writeJSON(w, http.StatusOK, envelope{Period: "Lifetime", Records: len(customers), Empty: len(customers) == 0, Data: customers})
}
