package handlers

import (
	"net/http"

	"sndiag/internal/database"
	"sndiag/internal/web"
)

// RunsHandler manages check run history queries.
type RunsHandler struct {
	runsRepo *database.CheckRunRepo
}

func NewRunsHandler() *RunsHandler {
	return &RunsHandler{
		runsRepo: database.NewCheckRunRepo(),
	}
}

// List returns check runs with pagination and filters.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)

	filter := database.CheckRunFilter{
		Page:      pq.Page,
		PageSize:  pq.PageSize,
		SortBy:    pq.SortBy,
		SortOrder: pq.SortOrder,
		CheckName: r.URL.Query().Get("check"),
		Instance:  r.URL.Query().Get("instance"),
		Source:    r.URL.Query().Get("source"),
		StartTime: pq.StartTime,
		EndTime:   pq.EndTime,
	}

	runs, total, err := h.runsRepo.List(filter)
	if err != nil {
		web.FailErr(w, r, web.ErrRunsQueryFail)
		return
	}

	web.OKPage(w, r, runs, total, pq.Page, pq.PageSize)
}
