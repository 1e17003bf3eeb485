package http

import (
	"net/http"

	"fintrack/internal/report"
	"fintrack/internal/services"
)

// loadReport parses the query and computes the bundle, writing the error
// response itself when it fails.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	req, err := ParseReportRequest(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return report.Report{}, false
	}
	rep, err := s.reports.Report(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return report.Report{}, false
	}
	return rep, true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(struct {
		Range       report.Range   `json:"range"`
		Days        int            `json:"days"`
		Summary     report.Summary `json:"summary"`
		SavingsRate float64        `json:"savingsRate"`
		Trend       *report.Trend  `json:"trend,omitempty"`
	}{rep.Range, rep.Days, rep.Summary, rep.SavingsRate, rep.Trend}).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(struct {
		Range   report.Range         `json:"range"`
		Monthly []report.MonthBucket `json:"monthly"`
	}{rep.Range, rep.Monthly}).Write(w)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(struct {
		Range      report.Range            `json:"range"`
		Categories []report.CategoryAmount `json:"categories"`
		Breakdown  []report.CategoryAmount `json:"breakdown"`
	}{rep.Range, rep.TopCategories, rep.Breakdown}).Write(w)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(struct {
		Range      report.Range         `json:"range"`
		Comparison []report.MonthBucket `json:"comparison"`
	}{rep.Range, rep.Comparison}).Write(w)
}

// handlePresets lists every preset with the range it resolves to now.
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	type preset struct {
		Name  report.Preset `json:"name"`
		Range report.Range  `json:"range"`
	}
	out := make([]preset, 0, len(report.Presets))
	for _, p := range report.Presets {
		rng, err := s.reports.ResolveRange(services.ReportRequest{Preset: p})
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		out = append(out, preset{Name: p, Range: rng})
	}
	NewJSONResponse().Body(map[string]any{
		"default": services.DefaultPreset,
		"presets": out,
	}).Write(w)
}
