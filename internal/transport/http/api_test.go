package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/auth"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/file"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/fieldbook/fieldbook/internal/report"
	"github.com/fieldbook/fieldbook/internal/store/memstore"
	"github.com/fieldbook/fieldbook/internal/tenant"
	transportHTTP "github.com/fieldbook/fieldbook/internal/transport/http"
)

const testBucket = "fieldbook-test"

type stubSigner struct{}

func (stubSigner) PresignPut(_ context.Context, bucket, key, _ string) (string, time.Time, error) {
	return "https://s3.test/" + bucket + "/" + key, time.Now().Add(15 * time.Minute), nil
}

type apiHarness struct {
	t      *testing.T
	router *chi.Mux
	store  *memstore.Store
}

type session struct {
	token    string
	userID   string
	tenantID string
}

func newAPI(t *testing.T) *apiHarness {
	t.Helper()
	st := memstore.New()
	auditLogger := audit.NewStoreLogger(st, nil)
	idem := idempotent.NewManager(nil, nil)
	resolver := authz.NewResolver(st)

	issuer, err := auth.NewIssuer("fieldbook-test", []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	h := transportHTTP.NewHandler(transportHTTP.Services{
		Identity: identity.NewService(st.Users(), identity.NewPasswordHasher(1024, 1, 1, 16, 32), auditLogger, 5, time.Minute),
		Tenant:   tenant.NewService(st.Companies(), auditLogger),
		Project:  project.NewService(st, st, st, resolver, auditLogger, idem, project.Options{}),
		Report:   report.NewService(st.Reports(), resolver, auditLogger, idem),
		File:     file.NewService(st.Files(), stubSigner{}, testBucket, resolver, auditLogger, idem),
	}, issuer)

	return &apiHarness{
		t:      t,
		router: transportHTTP.NewRouter(h, transportHTTP.NewRateLimiter(1000, 1000), nil),
		store:  st,
	}
}

func (a *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *apiHarness) register(company, email string) session {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/auth/register", "", transportHTTP.RegisterRequest{
		CompanyName: company,
		Email:       email,
		Name:        "Owner",
		Password:    "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[transportHTTP.RegisterResponse](a.t, w)
	return session{token: resp.AccessToken, userID: resp.User.ID, tenantID: resp.Company.ID}
}

func (a *apiHarness) provision(owner session, email string) session {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/users", owner.token, transportHTTP.ProvisionUserRequest{
		Email:    email,
		Name:     "Member",
		Password: "correct-horse",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/v1/auth/login", "", transportHTTP.LoginRequest{Email: email, Password: "correct-horse"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[transportHTTP.TokenResponse](a.t, w)
	return session{token: resp.AccessToken, userID: resp.User.ID, tenantID: resp.User.TenantID}
}

func (a *apiHarness) createProject(owner session, name string) *project.Project {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/projects", owner.token, transportHTTP.CreateProjectRequest{Name: name})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*project.Project](a.t, w)
}

// TestPurpose: Validates the register, login and current-user flow.
// Scope: Integration (HTTP + services + in-memory store)
// Security: Tokens carry the registered tenant and role
// Expected: Register 201, login 200, /auth/me returns the caller, wrong password 401.
// Test Case ID: API-01
func TestAPI_RegisterLoginAndMe(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")

	w := api.do(http.MethodGet, "/api/v1/auth/me", owner.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[identity.User](t, w)
	assert.Equal(t, owner.userID, me.ID)
	assert.Equal(t, authz.RoleOwner, me.Role)

	w = api.do(http.MethodPost, "/api/v1/auth/login", "", transportHTTP.LoginRequest{Email: "owner@acme.test", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/api/v1/auth/register", "", transportHTTP.RegisterRequest{
		CompanyName: "Other", Email: "OWNER@acme.test", Password: "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	api := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/projects", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/projects", "not-a-jwt", nil).Code)
}

// TestPurpose: Validates that a project of another company is indistinguishable from a missing one.
// Scope: Integration
// Security: Tenant enumeration prevention
// Expected: Foreign tenant gets 404, same-tenant non-member gets 403.
// Test Case ID: API-02
func TestAPI_CrossTenantProjectIsNotFound(t *testing.T) {
	api := newAPI(t)
	acme := api.register("Acme", "owner@acme.test")
	other := api.register("Other", "owner@other.test")
	p := api.createProject(acme, "Riverside")

	w := api.do(http.MethodGet, "/api/v1/projects/"+p.ID, other.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/projects/does-not-exist", acme.token, nil).Code)

	member := api.provision(acme, "crew@acme.test")
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/projects/"+p.ID, member.token, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/projects/"+p.ID, acme.token, nil).Code)
}

func TestAPI_AddMemberIsIdempotent(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	member := api.provision(owner, "crew@acme.test")
	p := api.createProject(owner, "Riverside")
	path := "/api/v1/projects/" + p.ID + "/members"

	first := api.do(http.MethodPost, path, owner.token, transportHTTP.AddMemberRequest{UserID: member.userID, Role: "MEMBER"})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := api.do(http.MethodPost, path, owner.token, transportHTTP.AddMemberRequest{UserID: member.userID, Role: "MEMBER"})
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, decode[project.Membership](t, first).ID, decode[project.Membership](t, second).ID)
	assert.Len(t, api.store.EventsFor(audit.EntityProjectMember, audit.ActionMemberAdded), 1)

	list := decode[[]project.Membership](t, api.do(http.MethodGet, path, member.token, nil))
	assert.Len(t, list, 2)

	w := api.do(http.MethodPost, path, member.token, transportHTTP.AddMemberRequest{UserID: owner.userID, Role: "MEMBER"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestPurpose: Validates the daily report lifecycle end to end.
// Scope: Integration
// Security: Submitted reports are locked; only owners approve
// Expected: Draft 201 then 200 with the same id; edits after submit 403; approve once, then 409.
// Test Case ID: API-03
func TestAPI_DailyReportLifecycle(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	member := api.provision(owner, "crew@acme.test")
	p := api.createProject(owner, "Riverside")
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/projects/"+p.ID+"/members", owner.token,
		transportHTTP.AddMemberRequest{UserID: member.userID, Role: "MEMBER"}).Code)

	draftPath := "/api/v1/projects/" + p.ID + "/reports"
	first := api.do(http.MethodPost, draftPath, member.token, transportHTTP.DraftRequest{ReportDate: "2026-10-17"})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	again := api.do(http.MethodPost, draftPath, member.token, transportHTTP.DraftRequest{ReportDate: "2026-10-17"})
	require.Equal(t, http.StatusOK, again.Code)
	rep := decode[report.DailyReport](t, first)
	assert.Equal(t, rep.ID, decode[report.DailyReport](t, again).ID)
	assert.Equal(t, 1, api.store.ReportCount())

	reportPath := "/api/v1/reports/" + rep.ID
	notes := "poured slab"
	w := api.do(http.MethodPatch, reportPath, member.token, transportHTTP.UpdateReportRequest{WorkCompleted: &notes})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, notes, *decode[report.DailyReport](t, w).WorkCompleted)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, reportPath+"/submit", member.token, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, reportPath, member.token, transportHTTP.UpdateReportRequest{Notes: &notes}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, reportPath+"/approve", member.token, nil).Code)

	w = api.do(http.MethodPost, reportPath+"/approve", owner.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, authz.ReportApproved, decode[report.DailyReport](t, w).Status)
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, reportPath+"/approve", owner.token, nil).Code)
}

func TestAPI_DraftRejectsBadDate(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	p := api.createProject(owner, "Riverside")

	w := api.do(http.MethodPost, "/api/v1/projects/"+p.ID+"/reports", owner.token, transportHTTP.DraftRequest{ReportDate: "17/10/2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestPurpose: Validates presign and finalize, including replay and key substitution.
// Scope: Integration
// Security: A key from another tenant's namespace is rejected
// Expected: Finalize 201 then 200; a foreign tenant finalizing the key gets 400.
// Test Case ID: API-04
func TestAPI_FileUpload(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	other := api.register("Other", "owner@other.test")
	p := api.createProject(owner, "Riverside")

	w := api.do(http.MethodPost, "/api/v1/files/presign", owner.token, transportHTTP.PresignRequest{ProjectID: &p.ID, MimeType: "image/jpeg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode[file.Upload](t, w)
	assert.Contains(t, up.UploadURL, up.ObjectKey)

	req := transportHTTP.FinalizeRequest{ProjectID: &p.ID, ObjectKey: up.ObjectKey, FileName: "site.jpg", MimeType: "image/jpeg", Size: 2048}
	first := api.do(http.MethodPost, "/api/v1/files", owner.token, req)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := api.do(http.MethodPost, "/api/v1/files", owner.token, req)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, decode[file.Object](t, first).ID, decode[file.Object](t, second).ID)
	assert.Len(t, api.store.EventsFor(audit.EntityFile, audit.ActionUploaded), 1)

	stolen := req
	stolen.ProjectID = nil
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/files", other.token, stolen).Code)
}

func TestAPI_CompanyRename(t *testing.T) {
	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	member := api.provision(owner, "crew@acme.test")

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/v1/company", member.token, transportHTTP.RenameCompanyRequest{Name: "Nope"}).Code)

	w := api.do(http.MethodPut, "/api/v1/company", owner.token, transportHTTP.RenameCompanyRequest{Name: "Acme Ltd"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Acme Ltd", decode[tenant.Company](t, w).Name)

	w = api.do(http.MethodGet, "/api/v1/company", member.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, owner.tenantID, decode[tenant.Company](t, w).ID)
}

// TestPurpose: Validates that request spans are named after the route, not the concrete path.
// Scope: Integration (HTTP + tracing)
// Security: Resource ids stay out of span names
// Expected: GET on a project is recorded as "GET /api/v1/projects/{projectID}".
// Test Case ID: API-05
func TestAPI_SpanNamesUseRoutePattern(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	api := newAPI(t)
	owner := api.register("Acme", "owner@acme.test")
	p := api.createProject(owner, "Riverside")
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/projects/"+p.ID, owner.token, nil).Code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
		assert.NotContains(t, span.Name(), p.ID)
	}
	assert.Contains(t, names, "GET /api/v1/projects/{projectID}")
	assert.Contains(t, names, "POST /api/v1/projects")
}
