package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Caizin-Private/QuestEvent/internal/auth"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/program"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/stream"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/user"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	users   *user.Service
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("QUESTEVENT_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	programStore := program.NewInMemory()
	regStore := registration.NewInMemory()
	subStore := submission.NewInMemory()
	userStore := user.NewInMemory()
	wallets := wallet.NewInMemory()

	guard := workflow.NewGuard(regStore, subStore)
	programs := program.NewService(programStore, guard, regStore)
	regs := registration.NewService(regStore, guard)
	subs := submission.NewService(subStore, guard, programs, wallets)
	users := user.NewService(userStore, guard, wallets)

	provider := &authz.StoreProvider{
		Programs:      programStore,
		Registrations: regStore,
		Submissions:   subStore,
		Users:         userStore,
		Wallets:       wallets,
	}

	api := New(Deps{
		Authz:          authz.NewAuthorizer(provider),
		Programs:       programs,
		Registrations:  regs,
		Submissions:    subs,
		Users:          users,
		Wallets:        wallets,
		ProgramWallets: wallet.NewInMemoryProgram(),
		Stream:         stream.New(),
		Version:        "test",
		RateBurst:      1000,
		RatePerSecond:  1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		users:   users,
	}
}

// seedUser creates an account directly through the service layer so tests do
// not depend on the owner-only signup endpoint.
func (c *apiClient) seedUser(name, email, role string) user.User {
	c.t.Helper()
	u, err := c.users.Create(context.Background(), workflow.UserPayload{
		Name:     name,
		Email:    email,
		Password: "test-password",
		Role:     role,
	})
	if err != nil {
		c.t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func (c *apiClient) login(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": "test-password",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatal("empty token issued")
	}
	return map[string]string{"Authorization": "Bearer " + payload.Token}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u := path
	if params != nil {
		u += "?" + params.Encode()
	}
	return c.do(http.MethodGet, u, nil, headers)
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func programBody(hostID, judgeID string) map[string]any {
	return map[string]any{
		"programTitle": "Autumn Hackathon",
		"hostUserId":   hostID,
		"judgeUserId":  judgeID,
		"startDate":    "2026-10-01",
		"endDate":      "2026-10-03",
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/programs", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] == "" {
		t.Fatal("expected error message")
	}
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("Host", "host@example.com", "HOST")

	resp := api.post("/v1/auth/token", map[string]any{
		"email":    "host@example.com",
		"password": "wrong",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProgramLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	host := api.seedUser("Host", "host@example.com", "HOST")
	judge := api.seedUser("Judge", "judge@example.com", "JUDGE")
	api.seedUser("Part", "part@example.com", "PARTICIPANT")
	hostAuth := api.login("host@example.com")
	partAuth := api.login("part@example.com")

	resp := api.post("/v1/programs", programBody(host.ID, judge.ID), hostAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create program: %d", resp.StatusCode)
	}
	prog := decode[map[string]any](t, resp)
	progID := prog["id"].(string)

	// A participant cannot create a program hosted by someone else.
	resp = api.post("/v1/programs", programBody(host.ID, judge.ID), partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Everyone authenticated can read.
	resp = api.get("/v1/programs/"+progID, nil, partAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read program: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing programs answer 404, not 403, for everyone.
	resp = api.get("/v1/programs/nope", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Only the host updates.
	update := programBody(host.ID, judge.ID)
	update["programTitle"] = "Renamed"
	resp = api.do(http.MethodPut, "/v1/programs/"+progID, update, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodPut, "/v1/programs/"+progID, update, hostAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update program: %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["title"] != "Renamed" {
		t.Fatalf("unexpected title: %v", updated["title"])
	}
}

func TestProgramCreateValidation(t *testing.T) {
	api := newTestAPI(t)
	host := api.seedUser("Host", "host@example.com", "HOST")
	hostAuth := api.login("host@example.com")

	resp := api.post("/v1/programs", map[string]any{
		"programTitle": "",
		"hostUserId":   host.ID,
	}, hostAuth)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["fields"] == nil {
		t.Fatalf("expected field list, got %v", body)
	}
}

func TestRegistrationAndSubmissionFlow(t *testing.T) {
	api := newTestAPI(t)
	host := api.seedUser("Host", "host@example.com", "HOST")
	judge := api.seedUser("Judge", "judge@example.com", "JUDGE")
	part := api.seedUser("Part", "part@example.com", "PARTICIPANT")
	hostAuth := api.login("host@example.com")
	judgeAuth := api.login("judge@example.com")
	partAuth := api.login("part@example.com")

	resp := api.post("/v1/programs", programBody(host.ID, judge.ID), hostAuth)
	prog := decode[map[string]any](t, resp)
	progID := prog["id"].(string)

	resp = api.post("/v1/programs/"+progID+"/activities", map[string]any{
		"activityName":     "Code Golf",
		"activityDuration": 60,
		"rewardGems":       40,
	}, hostAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create activity: %d", resp.StatusCode)
	}
	act := decode[map[string]any](t, resp)
	actID := act["id"].(string)

	// Submitting before registering is an invalid state.
	resp = api.post("/v1/activities/"+actID+"/submissions", map[string]any{
		"userId":        part.ID,
		"submissionUrl": "https://example.com/work",
	}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// Register, then a duplicate registration conflicts.
	resp = api.post("/v1/activities/"+actID+"/registrations", map[string]any{"userId": part.ID}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", resp.StatusCode)
	}
	resp = api.post("/v1/activities/"+actID+"/registrations", map[string]any{"userId": part.ID}, partAuth)
	dup := decode[map[string]any](t, resp)
	if dup["kind"] != string(authz.ConflictDuplicate) {
		t.Fatalf("expected DUPLICATE conflict, got %v", dup)
	}

	// Registering someone else is denied.
	resp = api.post("/v1/activities/"+actID+"/registrations", map[string]any{"userId": host.ID}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Submit once; a second submission conflicts.
	resp = api.post("/v1/activities/"+actID+"/submissions", map[string]any{
		"userId":        part.ID,
		"submissionUrl": "https://example.com/work",
	}, partAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d", resp.StatusCode)
	}
	sub := decode[map[string]any](t, resp)
	subID := sub["id"].(string)

	// The participant can read their own submission, but not review it.
	resp = api.get("/v1/submissions/"+subID, nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read own submission: %d", resp.StatusCode)
	}
	resp = api.post("/v1/judge/submissions/"+subID+"/approve", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// The assigned judge approves; gems land in the wallet.
	resp = api.post("/v1/judge/submissions/"+subID+"/approve", nil, judgeAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: %d", resp.StatusCode)
	}
	approved := decode[map[string]any](t, resp)
	if approved["status"] != "APPROVED" || approved["awarded_gems"].(float64) != 40 {
		t.Fatalf("unexpected review result: %v", approved)
	}

	// A second review is an invalid state conflict.
	resp = api.post("/v1/judge/submissions/"+subID+"/approve", nil, judgeAuth)
	second := decode[map[string]any](t, resp)
	if second["kind"] != string(authz.ConflictInvalidState) {
		t.Fatalf("expected INVALID_STATE conflict, got %v", second)
	}

	// Wallet shows the single award; only the wallet owner can read it.
	resp = api.get("/v1/wallets/"+part.ID, nil, partAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wallet read: %d", resp.StatusCode)
	}
	w := decode[map[string]any](t, resp)
	if w["gems"].(float64) != 40 {
		t.Fatalf("unexpected balance: %v", w["gems"])
	}
	resp = api.get("/v1/wallets/"+part.ID, nil, hostAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// The judge sees the activity's submissions; participants do not.
	resp = api.get("/v1/activities/"+actID+"/submissions", nil, judgeAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity submissions: %d", resp.StatusCode)
	}
	listed := decode[map[string]any](t, resp)
	if items, ok := listed["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("expected one submission, got %v", listed["items"])
	}
	resp = api.get("/v1/activities/"+actID+"/submissions", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Leaderboard is open to all authenticated users.
	resp = api.get("/v1/leaderboard", nil, hostAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: %d", resp.StatusCode)
	}
	board := decode[map[string]any](t, resp)
	if board["items"] == nil {
		t.Fatal("expected leaderboard items")
	}
}

func TestJudgeQueueScopedToRole(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("Judge", "judge@example.com", "JUDGE")
	api.seedUser("Part", "part@example.com", "PARTICIPANT")
	judgeAuth := api.login("judge@example.com")
	partAuth := api.login("part@example.com")

	resp := api.get("/v1/judge/submissions", nil, judgeAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("judge queue: %d", resp.StatusCode)
	}
	resp = api.get("/v1/judge/submissions", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/judge/submissions", url.Values{"status": {"all"}}, judgeAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("judge queue all: %d", resp.StatusCode)
	}
	resp = api.get("/v1/judge/submissions", url.Values{"status": {"bogus"}}, judgeAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/judge/stats", nil, judgeAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("judge stats: %d", resp.StatusCode)
	}

	// The registrations collection is a review-role surface too.
	resp = api.get("/v1/registrations", nil, judgeAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("registrations list: %d", resp.StatusCode)
	}
	resp = api.get("/v1/registrations", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUserEndpointsSelfAndOwner(t *testing.T) {
	api := newTestAPI(t)
	owner := api.seedUser("Owner", "owner@example.com", "OWNER")
	part := api.seedUser("Part", "part@example.com", "PARTICIPANT")
	ownerAuth := api.login("owner@example.com")
	partAuth := api.login("part@example.com")

	// Self read is allowed, foreign read is not.
	resp := api.get("/v1/users/"+part.ID, nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self read: %d", resp.StatusCode)
	}
	resp = api.get("/v1/users/"+owner.ID, nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// Only the owner lists and creates accounts.
	resp = api.get("/v1/users", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.post("/v1/users", map[string]any{
		"name":     "New Judge",
		"email":    "newjudge@example.com",
		"password": "long-enough",
		"role":     "JUDGE",
	}, ownerAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("owner create user: %d", resp.StatusCode)
	}

	// Role changes are owner-only.
	resp = api.do(http.MethodPut, "/v1/users/"+part.ID, map[string]any{"role": "HOST"}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.do(http.MethodPut, "/v1/users/"+part.ID, map[string]any{"role": "HOST"}, ownerAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner role change: %d", resp.StatusCode)
	}
	changed := decode[map[string]any](t, resp)
	if changed["role"] != "HOST" {
		t.Fatalf("unexpected role: %v", changed["role"])
	}
}

func TestProgramDeleteBlockedByRegistrations(t *testing.T) {
	api := newTestAPI(t)
	host := api.seedUser("Host", "host@example.com", "HOST")
	judge := api.seedUser("Judge", "judge@example.com", "JUDGE")
	part := api.seedUser("Part", "part@example.com", "PARTICIPANT")
	hostAuth := api.login("host@example.com")
	partAuth := api.login("part@example.com")

	resp := api.post("/v1/programs", programBody(host.ID, judge.ID), hostAuth)
	prog := decode[map[string]any](t, resp)
	progID := prog["id"].(string)

	resp = api.post("/v1/programs/"+progID+"/registrations", map[string]any{"userId": part.ID}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", resp.StatusCode)
	}

	resp = api.do(http.MethodDelete, "/v1/programs/"+progID, nil, hostAuth)
	blocked := decode[map[string]any](t, resp)
	if blocked["kind"] != string(authz.ConflictInvalidState) {
		t.Fatalf("expected INVALID_STATE conflict, got %v", blocked)
	}
}

func TestProgramWalletCollectsFeesAndSettlesOnce(t *testing.T) {
	api := newTestAPI(t)
	host := api.seedUser("Host", "host@example.com", "HOST")
	judge := api.seedUser("Judge", "judge@example.com", "JUDGE")
	part := api.seedUser("Part", "part@example.com", "PARTICIPANT")
	hostAuth := api.login(host.Email)
	partAuth := api.login(part.Email)

	body := programBody(host.ID, judge.ID)
	body["registrationFee"] = 19.99
	resp := api.post("/v1/programs", body, hostAuth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create program: %d", resp.StatusCode)
	}
	prog := decode[map[string]any](t, resp)
	progID := prog["id"].(string)

	// Registering for the program collects the fee into its wallet.
	resp = api.post("/v1/programs/"+progID+"/registrations", map[string]any{"userId": part.ID}, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", resp.StatusCode)
	}

	// Only the host (or owner) sees the wallet.
	resp = api.get("/v1/programs/"+progID+"/wallet", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/programs/"+progID+"/wallet", nil, hostAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read wallet: %d", resp.StatusCode)
	}
	w := decode[map[string]any](t, resp)
	if w["balance"].(float64) != 19.99 {
		t.Fatalf("unexpected balance: %v", w["balance"])
	}

	// Settlement is host-only and succeeds exactly once.
	resp = api.post("/v1/programs/"+progID+"/settle", nil, partAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp = api.post("/v1/programs/"+progID+"/settle", nil, hostAuth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settle: %d", resp.StatusCode)
	}
	settled := decode[map[string]any](t, resp)
	if settled["settled"] != true {
		t.Fatalf("wallet not settled: %v", settled)
	}
	resp = api.post("/v1/programs/"+progID+"/settle", nil, hostAuth)
	repeat := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusConflict || repeat["kind"] != string(authz.ConflictInvalidState) {
		t.Fatalf("expected INVALID_STATE conflict, got %d %v", resp.StatusCode, repeat)
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
