package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Spok95/bqs/internal/ctxutil"
	"github.com/Spok95/bqs/internal/export"
	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/workflow"
)

func caller(r *http.Request) ctxutil.Caller {
	c, _ := ctxutil.CallerFrom(r.Context())
	return c
}

func op(r *http.Request, name string) context.Context {
	return ctxutil.WithOp(r.Context(), name)
}

func invalid(msg string) error {
	return &workflow.Error{Kind: workflow.KindValidation, Msg: msg}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", "database is not reachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.deps.Now().UTC().Format(time.RFC3339),
	})
}

// listingQuery: параметры page, limit, search, tab, filters.
func listingQuery(r *http.Request) (listing.Query, error) {
	c := caller(r)
	if c.Role == "" {
		return listing.Query{}, invalid("X-User-Role header is required for listing")
	}
	v := r.URL.Query()
	q := listing.Query{Role: c.Role, CallerID: c.UserID, Search: v.Get("search")}

	var err error
	if q.Page, err = intParam(v.Get("page")); err != nil {
		return q, invalid("page must be a positive integer")
	}
	if q.Limit, err = intParam(v.Get("limit")); err != nil {
		return q, invalid("limit must be a positive integer")
	}
	if q.Tabs, err = listing.ParseTabs(v.Get("tab"), c.Role); err != nil {
		return q, err
	}
	if q.Filters, err = listing.ParseFilters(v.Get("filters")); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && n < 1 {
		err = strconv.ErrRange
	}
	return n, err
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := listingQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Listing.List(op(r, "list"), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := listingQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q.All = true
	res, err := s.deps.Listing.List(op(r, "export"), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	wb, err := export.NewListingWorkbook(res)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tabs := make([]string, 0, len(q.Tabs))
	for _, t := range q.Tabs {
		tabs = append(tabs, string(t))
	}
	name := export.BuildListingFilename(tabs, s.deps.Now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = wb.WriteTo(w)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := s.deps.Listing.Get(op(r, "get"), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if it == nil {
		respondError(w, http.StatusNotFound, "not_found", "opportunity "+id+" not found")
		return
	}
	respondJSON(w, http.StatusOK, it)
}

type assignRequest struct {
	Role   string `json:"role"`
	UserID string `json:"user_id"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		s.fail(w, r, invalid("unknown role "+strconv.Quote(req.Role)))
		return
	}
	o, err := s.deps.Workflow.Assign(op(r, "assign"), chi.URLParam(r, "id"), role, strings.TrimSpace(req.UserID), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Workflow.StartAssessment(op(r, "start"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	versionNo, err := intParam(r.URL.Query().Get("version"))
	if err != nil {
		s.fail(w, r, invalid("version must be a positive integer"))
		return
	}
	view, err := s.deps.Workflow.GetLatest(op(r, "get_latest"), chi.URLParam(r, "id"), caller(r).UserID, versionNo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) scoring(w http.ResponseWriter, r *http.Request) (workflow.ScoringInput, bool) {
	var in workflow.ScoringInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return in, false
	}
	in.OpportunityID = chi.URLParam(r, "id")
	in.CallerID = caller(r).UserID
	return in, true
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	in, ok := s.scoring(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Workflow.SaveDraft(op(r, "save_draft"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := s.scoring(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Workflow.Submit(op(r, "submit"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleNewVersion(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Workflow.NewVersion(op(r, "new_version"), chi.URLParam(r, "id"), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"version_number": n})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.deps.Workflow.History(op(r, "history"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hist)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.deps.Workflow.CombinedReview(op(r, "review"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

type approvalRequest struct {
	Role     string `json:"role"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		s.fail(w, r, invalid("unknown role "+strconv.Quote(req.Role)))
		return
	}
	o, err := s.deps.Workflow.Approve(op(r, "approve"), workflow.ApprovalInput{
		OpportunityID: chi.URLParam(r, "id"),
		Role:          role,
		Decision:      models.ApprovalState(strings.ToUpper(strings.TrimSpace(req.Decision))),
		Comment:       req.Comment,
		CallerID:      caller(r).UserID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var records []models.CRMRecord
	if err := decode(r, &records); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.deps.Workflow.Ingest(op(r, "ingest"), records)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"upserted": n})
}

func (s *Server) handleRubric(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Rubric())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Reload(op(r, "reload")); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
