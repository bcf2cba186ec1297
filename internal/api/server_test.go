package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/bqs/internal/directory"
	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/rubric"
	"github.com/Spok95/bqs/internal/workflow"
)

type fakeWorkflow struct {
	lastScoring  workflow.ScoringInput
	lastApproval workflow.ApprovalInput
	err          error
}

func (f *fakeWorkflow) Assign(_ context.Context, id string, role models.Role, userID, _ string) (*models.Opportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	o := &models.Opportunity{ID: id, Status: models.StatusUnderAssessment}
	o.Slots.Set(role, userID)
	return o, nil
}

func (f *fakeWorkflow) StartAssessment(_ context.Context, id string) (*models.Opportunity, error) {
	return &models.Opportunity{ID: id, Status: models.StatusUnderAssessment}, f.err
}

func (f *fakeWorkflow) SaveDraft(_ context.Context, in workflow.ScoringInput) (*workflow.ScoreResult, error) {
	f.lastScoring = in
	return &workflow.ScoreResult{Overall: 60}, f.err
}

func (f *fakeWorkflow) Submit(_ context.Context, in workflow.ScoringInput) (*workflow.ScoreResult, error) {
	f.lastScoring = in
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.ScoreResult{Overall: 77, FastTrack: true, Status: models.StatusPendingGHApproval}, nil
}

func (f *fakeWorkflow) NewVersion(context.Context, string, string) (int, error) { return 2, f.err }

func (f *fakeWorkflow) GetLatest(_ context.Context, id, _ string, _ int) (*workflow.LatestView, error) {
	return &workflow.LatestView{OpportunityID: id}, f.err
}

func (f *fakeWorkflow) History(context.Context, string) ([]workflow.VersionSummary, error) {
	return []workflow.VersionSummary{}, f.err
}

func (f *fakeWorkflow) CombinedReview(_ context.Context, id string) (*workflow.CombinedReview, error) {
	return &workflow.CombinedReview{OpportunityID: id}, f.err
}

func (f *fakeWorkflow) Approve(_ context.Context, in workflow.ApprovalInput) (*models.Opportunity, error) {
	f.lastApproval = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Opportunity{ID: in.OpportunityID, Status: models.StatusApproved}, nil
}

func (f *fakeWorkflow) Ingest(_ context.Context, records []models.CRMRecord) (int, error) {
	return len(records), f.err
}

type fakeListing struct {
	lastQuery listing.Query
}

func (f *fakeListing) List(_ context.Context, q listing.Query) (*listing.Result, error) {
	f.lastQuery = q
	return &listing.Result{
		Items:  []listing.Item{{ID: "O1", Name: "Migration", Value: 10}},
		Counts: map[listing.Tab]int{listing.TabAll: 1},
	}, nil
}

func (f *fakeListing) Get(_ context.Context, id string) (*listing.Item, error) {
	if id != "O1" {
		return nil, nil
	}
	return &listing.Item{ID: "O1"}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeWorkflow, *fakeListing) {
	t.Helper()
	wf, ls := &fakeWorkflow{}, &fakeListing{}
	dir := directory.New([]models.User{
		{ID: "gh", Name: "Grace", IsActive: true, Roles: []models.Role{models.RoleGH}},
		{ID: "p1", Name: "Paul", IsActive: true, Roles: []models.Role{models.RolePH}},
		{ID: "gone", Name: "Old", IsActive: false, Roles: []models.Role{models.RoleGH}},
	})
	s := NewServer(Deps{
		Workflow:  wf,
		Listing:   ls,
		Directory: dir,
		Rubric:    rubric.Default().Sections,
		Reload:    func(context.Context) error { return nil },
		Now:       func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) },
	})
	return s, wf, ls
}

func do(t *testing.T, s *Server, method, path, user, role, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	if role != "" {
		req.Header.Set(headerUserRole, role)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestIdentify(t *testing.T) {
	s, _, _ := newTestServer(t)

	if rec, _ := do(t, s, "GET", "/api/v1/rubric", "", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no caller: %d", rec.Code)
	}
	if rec, _ := do(t, s, "GET", "/api/v1/rubric", "gone", "", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("inactive: %d", rec.Code)
	}
	if rec, _ := do(t, s, "GET", "/api/v1/rubric", "p1", "GH", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("role not held: %d", rec.Code)
	}
	rec, resp := do(t, s, "GET", "/api/v1/rubric", "p1", "", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("rubric: %d %+v", rec.Code, resp)
	}
	if sections, _ := resp.Data.([]any); len(sections) != 9 {
		t.Fatalf("sections = %v", resp.Data)
	}
}

func TestList(t *testing.T) {
	s, _, ls := newTestServer(t)

	if rec, _ := do(t, s, "GET", "/api/v1/opportunities", "p1", "", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing role: %d", rec.Code)
	}
	params := url.Values{
		"page":    {"2"},
		"limit":   {"5"},
		"tab":     {"review,completed"},
		"filters": {`[{"id":"practice","value":["Cloud"]}]`},
	}
	rec, resp := do(t, s, "GET", "/api/v1/opportunities?"+params.Encode(), "p1", "ph", "")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	q := ls.lastQuery
	if q.Role != models.RolePH || q.CallerID != "p1" || q.Page != 2 || q.Limit != 5 || len(q.Tabs) != 2 || len(q.Filters) != 1 {
		t.Fatalf("query = %+v", q)
	}
	if rec, _ := do(t, s, "GET", "/api/v1/opportunities?tab=unassigned", "p1", "PH", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("gh-only tab for PH: %d", rec.Code)
	}
	if rec, _ := do(t, s, "GET", "/api/v1/opportunities?page=0", "p1", "PH", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("page=0: %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	s, _, ls := newTestServer(t)
	rec, _ := do(t, s, "GET", "/api/v1/opportunities/export?tab=all", "gh", "GH", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if !ls.lastQuery.All {
		t.Fatal("export must not paginate")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "2026-01-02.xlsx") {
		t.Fatalf("disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty workbook")
	}
}

func TestGetOpportunity(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rec, _ := do(t, s, "GET", "/api/v1/opportunities/O1", "gh", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("found: %d", rec.Code)
	}
	rec, resp := do(t, s, "GET", "/api/v1/opportunities/nope", "gh", "", "")
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != "not_found" {
		t.Fatalf("missing: %d %+v", rec.Code, resp)
	}
}

func TestSubmitAndApprove(t *testing.T) {
	s, wf, _ := newTestServer(t)

	body := `{"sections":[{"section_code":"STRAT","score":4,"notes":"ok","selected_reasons":["a"]}],"summary_comment":"fine"}`
	rec, _ := do(t, s, "POST", "/api/v1/opportunities/O1/assessment/submit", "p1", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	in := wf.lastScoring
	if in.OpportunityID != "O1" || in.CallerID != "p1" || len(in.Sections) != 1 || in.Summary == nil || *in.Summary != "fine" {
		t.Fatalf("scoring input = %+v", in)
	}
	if in.Recommendation != nil {
		t.Fatal("absent fields must stay nil")
	}

	rec, _ = do(t, s, "POST", "/api/v1/opportunities/O1/approvals", "gh", "", `{"role":"gh","decision":"approved","comment":"go"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d", rec.Code)
	}
	if a := wf.lastApproval; a.Role != models.RoleGH || a.Decision != models.ApprovalApproved || a.CallerID != "gh" {
		t.Fatalf("approval = %+v", a)
	}

	if rec, _ := do(t, s, "POST", "/api/v1/opportunities/O1/approvals", "gh", "", `{"role":"CEO"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad role: %d", rec.Code)
	}
	if rec, _ := do(t, s, "PUT", "/api/v1/opportunities/O1/assessment", "gh", "", `not json`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad body: %d", rec.Code)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{&workflow.Error{Kind: workflow.KindNotFound, Msg: "opportunity X not found"}, http.StatusNotFound, "not_found"},
		{&workflow.Error{Kind: workflow.KindConflict, Msg: "opportunity is already APPROVED"}, http.StatusConflict, "conflict"},
		{&workflow.Error{Kind: workflow.KindValidation, Msg: "bad"}, http.StatusUnprocessableEntity, "validation"},
		{&workflow.Error{Kind: workflow.KindStore, Msg: "storage failure"}, http.StatusInternalServerError, "store"},
	}
	for _, c := range cases {
		s, wf, _ := newTestServer(t)
		wf.err = c.err
		rec, resp := do(t, s, "POST", "/api/v1/opportunities/X/start", "gh", "", "")
		if rec.Code != c.code || resp.Error == nil || resp.Error.Code != c.kind {
			t.Fatalf("%v: %d %+v", c.err, rec.Code, resp.Error)
		}
		if resp.Error.Message != workflow.Message(c.err) {
			t.Fatalf("message = %q", resp.Error.Message)
		}
	}
}

func TestAdminRoutesRequireGH(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rec, _ := do(t, s, "POST", "/api/v1/admin/reload", "p1", "PH", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("PH reload: %d", rec.Code)
	}
	if rec, _ := do(t, s, "POST", "/api/v1/admin/reload", "gh", "GH", ""); rec.Code != http.StatusOK {
		t.Fatalf("GH reload: %d", rec.Code)
	}
	rec, resp := do(t, s, "POST", "/api/v1/ingest/opportunities", "gh", "GH", `[{"id":"A"},{"id":"B","active":false}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: %d", rec.Code)
	}
	if m, _ := resp.Data.(map[string]any); m["upserted"] != float64(2) {
		t.Fatalf("data = %v", resp.Data)
	}
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rec, _ := do(t, s, "GET", "/healthz", "", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestAssessmentRoutes(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		method, path string
		code         int
	}{
		{"GET", "/api/v1/opportunities/O1/assessment?version=1", http.StatusOK},
		{"GET", "/api/v1/opportunities/O1/assessment/history", http.StatusOK},
		{"GET", "/api/v1/opportunities/O1/assessment/review", http.StatusOK},
		{"POST", "/api/v1/opportunities/O1/assessment/versions", http.StatusCreated},
	}
	for _, c := range cases {
		rec, resp := do(t, s, c.method, c.path, "gh", "", "")
		if rec.Code != c.code || !resp.Success {
			t.Fatalf("%s %s: %d %s", c.method, c.path, rec.Code, rec.Body.String())
		}
	}

	_, resp := do(t, s, "POST", "/api/v1/opportunities/O1/assessment/versions", "gh", "", "")
	data, _ := resp.Data.(map[string]any)
	if data["version_number"] != float64(2) {
		t.Fatalf("data = %v", resp.Data)
	}
	_, resp = do(t, s, "GET", "/api/v1/opportunities/O1/assessment/review", "gh", "", "")
	if data, _ := resp.Data.(map[string]any); data["opportunity_id"] != "O1" {
		t.Fatalf("review = %v", resp.Data)
	}
}
