// README: Handler tests over a scripted flow invoker and in-memory collaborators.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skyplan/internal/flow"
	"skyplan/internal/http/handlers"
	httpmiddleware "skyplan/internal/http/middleware"
	"skyplan/internal/infra"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/assistant"
	"skyplan/internal/modules/auth"
	"skyplan/internal/modules/itinerary"
	"skyplan/internal/modules/queryparse"
	"skyplan/internal/modules/search"
)

// stubTokenVerifier is a test double for infra.TokenVerifier.
type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func makeVerifier(uid string) *stubTokenVerifier {
	return &stubTokenVerifier{token: &infra.FirebaseToken{UID: uid, Claims: map[string]interface{}{}}}
}

// scriptedFlows answers each flow from its own queue. Input is checked
// against the flow's input contract like the real engine does.
type scriptedFlows struct {
	mu      sync.Mutex
	replies map[string][]any
	calls   map[string]int
}

func newScriptedFlows() *scriptedFlows {
	return &scriptedFlows{replies: map[string][]any{}, calls: map[string]int{}}
}

func (s *scriptedFlows) add(name string, replies ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[name] = append(s.replies[name], replies...)
}

func (s *scriptedFlows) Invoke(ctx context.Context, def *flow.Definition, input map[string]any) (map[string]any, error) {
	if _, err := def.Input().Validate(input); err != nil {
		var fe *flow.FieldError
		verr := &flow.ValidationError{Flow: def.Name(), Reason: err.Error()}
		if errors.As(err, &fe) {
			verr.Field, verr.Reason = fe.Field, fe.Reason
		}
		return nil, verr
	}
	if err := flow.Admit(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[def.Name()]++
	queue := s.replies[def.Name()]
	if len(queue) == 0 {
		return nil, &flow.AdapterError{Flow: def.Name(), Err: errors.New("no scripted reply")}
	}
	next := queue[0]
	s.replies[def.Name()] = queue[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return next.(map[string]any), nil
}

// quotaLedger grants tokens to everyone except the exhausted uids and
// counts what it grants.
type quotaLedger struct {
	mu        sync.Mutex
	exhausted map[string]bool
	charged   map[string]int
}

func (l *quotaLedger) UseToken(_ context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exhausted[uid] {
		return aiusage.ErrInsufficientTokens
	}
	l.charged[uid]++
	return nil
}

func (l *quotaLedger) spent(uid string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.charged[uid]
}

func (l *quotaLedger) EnsureUser(context.Context, string) error { return nil }

func (l *quotaLedger) Remaining(context.Context, string) (int, string, error) {
	return 42, time.Now().UTC().Format("2006-01"), nil
}

// memRepo keeps itineraries in memory.
type memRepo struct {
	items []itinerary.Itinerary
}

func (r *memRepo) Create(_ context.Context, it *itinerary.Itinerary) error {
	it.ID = "4d1d3c4e-7a51-4a43-9a0e-4c1f0e2b5a10"
	r.items = append(r.items, *it)
	return nil
}

func (r *memRepo) ListByUser(_ context.Context, uid string, _ int) ([]itinerary.Itinerary, error) {
	var out []itinerary.Itinerary
	for _, it := range r.items {
		if it.UID == uid {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, uid, id string) (itinerary.Itinerary, error) {
	for _, it := range r.items {
		if it.UID == uid && it.ID == id {
			return it, nil
		}
	}
	return itinerary.Itinerary{}, itinerary.ErrNotFound
}

// fakeAdmin resolves "good" to u1 and rejects every other token.
type fakeAdmin struct{}

func (fakeAdmin) VerifyIDToken(_ context.Context, idToken string) (string, error) {
	if idToken != "good" {
		return "", auth.ErrInvalidCredentials
	}
	return "u1", nil
}

func (fakeAdmin) GetUser(_ context.Context, uid string) (auth.User, error) {
	return auth.User{UID: uid, Email: uid + "@example.com"}, nil
}

func (fakeAdmin) CreateUser(context.Context, string, string, string) (auth.User, error) {
	return auth.User{}, auth.ErrEmailExists
}

func (fakeAdmin) RevokeRefreshTokens(context.Context, string) error { return nil }

type fakeSignIn struct{}

func (fakeSignIn) SignInWithPassword(_ context.Context, email, password string) (auth.Session, error) {
	if password != "pw123456" {
		return auth.Session{}, auth.ErrInvalidCredentials
	}
	return auth.Session{User: auth.User{UID: "u1", Email: email}, IDToken: "good", ExpiresIn: time.Hour}, nil
}

func (fakeSignIn) SignInWithIdP(context.Context, string, string, string) (auth.Session, error) {
	return auth.Session{}, auth.ErrInvalidCredentials
}

type testEnv struct {
	flows  *scriptedFlows
	repo   *memRepo
	ledger *quotaLedger
	store  *assistant.MemoryStore
	router *gin.Engine
}

// buildTestRouter wires a minimal Gin engine with the auth middlewares and every handler.
func buildTestRouter(verifier infra.TokenVerifier) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{
		flows:  newScriptedFlows(),
		repo:   &memRepo{},
		ledger: &quotaLedger{exhausted: map[string]bool{}, charged: map[string]int{}},
		store:  assistant.NewMemoryStore(),
	}
	usage := aiusage.NewService(env.ledger)
	sessions := assistant.NewSessions(
		assistant.NewService(env.flows, search.NewCannedProvider(), nil, nil), env.store)

	flights := handlers.NewFlightHandler(queryparse.NewService(env.flows), search.NewCannedProvider(), usage, time.Second)
	itineraries := handlers.NewItineraryHandler(itinerary.NewService(env.flows, env.repo, nil), usage, time.Second)
	conversations := handlers.NewAssistantHandler(sessions, usage, time.Second)
	accounts := handlers.NewAuthHandler(auth.NewService(fakeAdmin{}, fakeSignIn{}, ""), usage)

	optional := httpmiddleware.OptionalAuth(verifier)
	required := httpmiddleware.Auth(verifier)

	r := gin.New()
	r.POST("/api/flights/parse", optional, flights.Parse)
	r.GET("/api/flights", optional, flights.Search)
	r.POST("/api/itineraries", optional, itineraries.Create)
	r.GET("/api/itineraries", required, itineraries.List)
	r.GET("/api/itineraries/:id", required, itineraries.Get)
	r.POST("/api/assistant/conversations", optional, conversations.Create)
	r.GET("/api/assistant/conversations/:id", optional, conversations.Get)
	r.POST("/api/assistant/conversations/:id/messages", optional, conversations.Message)
	r.POST("/api/auth/signin", accounts.SignIn)
	r.POST("/api/auth/signup", accounts.SignUp)
	r.GET("/api/auth/me", required, accounts.Me)
	env.router = r
	return env
}

func doRequest(r *gin.Engine, method, path string, body interface{}, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestParse_ReturnsExtractedFields(t *testing.T) {
	env := buildTestRouter(nil)
	env.flows.add("parseFlightQuery", map[string]any{"destination": "Chennai", "dates": "Dec 1-8"})

	w := doRequest(env.router, http.MethodPost, "/api/flights/parse", map[string]any{"query": "Chennai in December"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["destination"] != "Chennai" || body["dates"] != "Dec 1-8" || body["empty"] != false {
		t.Errorf("unexpected body %v", body)
	}
}

func TestParse_EmptyQueryIsRejectedWithoutModelCall(t *testing.T) {
	env := buildTestRouter(nil)
	w := doRequest(env.router, http.MethodPost, "/api/flights/parse", map[string]any{"query": ""}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decode(t, w)["field"] != "query" {
		t.Errorf("expected field query, got %s", w.Body.String())
	}
	if env.flows.calls["parseFlightQuery"] != 0 {
		t.Errorf("model must not be called")
	}
}

func TestParse_ModelFailureIsBadGateway(t *testing.T) {
	env := buildTestRouter(nil)
	env.flows.add("parseFlightQuery",
		&flow.AdapterError{Flow: "parseFlightQuery", Err: errors.New("quota")},
		&flow.OutputContractError{Flow: "parseFlightQuery", Reason: "not json"},
	)
	for i := 0; i < 2; i++ {
		w := doRequest(env.router, http.MethodPost, "/api/flights/parse", map[string]any{"query": "Chennai"}, "")
		if w.Code != http.StatusBadGateway {
			t.Errorf("call %d: expected 502, got %d", i, w.Code)
		}
	}
}

func TestSearch_SortsAndPicks(t *testing.T) {
	env := buildTestRouter(nil)
	env.flows.add("parseFlightQuery", map[string]any{"destination": "Chennai"})

	w := doRequest(env.router, http.MethodGet, "/api/flights?q=Glasgow+to+Chennai&sort=cheapest", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Sort    string          `json:"sort"`
		Flights []search.Flight `json:"flights"`
		Picks   search.Picks    `json:"picks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Sort != "cheapest" || len(body.Flights) != 5 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if body.Flights[0].ID != "5" || body.Picks.Cheapest == nil || body.Picks.Cheapest.ID != "5" {
		t.Errorf("cheapest flight should lead, got %s", body.Flights[0].ID)
	}
	if body.Picks.Best == nil || body.Picks.Best.ID != "3" || body.Picks.Fastest == nil || body.Picks.Fastest.ID != "4" {
		t.Errorf("unexpected picks %+v", body.Picks)
	}

	w = doRequest(env.router, http.MethodGet, "/api/flights", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}
}

func TestQuotaExhaustedIsTooManyRequests(t *testing.T) {
	env := buildTestRouter(makeVerifier("broke"))
	env.ledger.exhausted["broke"] = true

	w := doRequest(env.router, http.MethodPost, "/api/flights/parse", map[string]any{"query": "Chennai"}, "Bearer tok")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if env.flows.calls["parseFlightQuery"] != 0 {
		t.Errorf("model must not be called over quota")
	}
}

func TestQuota_OnlyAdmittedCallsAreCharged(t *testing.T) {
	env := buildTestRouter(makeVerifier("u1"))
	const bearer = "Bearer tok"

	w := doRequest(env.router, http.MethodPost, "/api/flights/parse", map[string]any{"query": " "}, bearer)
	if w.Code != http.StatusBadRequest || env.ledger.spent("u1") != 0 {
		t.Fatalf("blank parse: status=%d charged=%d", w.Code, env.ledger.spent("u1"))
	}

	short := map[string]any{}
	for k, v := range prefs {
		short[k] = v
	}
	short["budget"] = "x"
	w = doRequest(env.router, http.MethodPost, "/api/itineraries", short, bearer)
	if w.Code != http.StatusBadRequest || env.ledger.spent("u1") != 0 {
		t.Fatalf("short itinerary field: status=%d charged=%d", w.Code, env.ledger.spent("u1"))
	}

	w = doRequest(env.router, http.MethodPost, "/api/assistant/conversations/0e5b1a8f-5a1e-4f0c-8f7c-3c3d1c0b9a11/messages",
		map[string]any{"message": "hi"}, bearer)
	if w.Code != http.StatusNotFound || env.ledger.spent("u1") != 0 {
		t.Fatalf("unknown conversation: status=%d charged=%d", w.Code, env.ledger.spent("u1"))
	}

	id := startConversation(t, env, bearer)
	path := "/api/assistant/conversations/" + id + "/messages"
	unlock, err := env.store.Lock(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	w = doRequest(env.router, http.MethodPost, path, map[string]any{"message": "hi"}, bearer)
	unlock()
	if w.Code != http.StatusConflict || env.ledger.spent("u1") != 0 {
		t.Fatalf("busy conversation: status=%d charged=%d", w.Code, env.ledger.spent("u1"))
	}

	env.flows.add("flightBookingAssistant",
		map[string]any{"reply": "Searching now.", "isFlightDetailsComplete": true, "flightDetails": completeDetails},
		map[string]any{"reply": "Lufthansa is cheapest.", "isFlightDetailsComplete": true},
	)
	w = doRequest(env.router, http.MethodPost, path, map[string]any{"message": "Glasgow to Chennai, Dec 1-8, 2 people"}, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.flows.calls["flightBookingAssistant"] != 2 || env.ledger.spent("u1") != 1 {
		t.Errorf("a two-call turn costs one token, got calls=%d charged=%d",
			env.flows.calls["flightBookingAssistant"], env.ledger.spent("u1"))
	}
}

func TestQuota_ExhaustedMidConversationIsTooManyRequests(t *testing.T) {
	env := buildTestRouter(makeVerifier("broke"))
	env.ledger.exhausted["broke"] = true
	id := startConversation(t, env, "Bearer tok")

	w := doRequest(env.router, http.MethodPost, "/api/assistant/conversations/"+id+"/messages",
		map[string]any{"message": "hi"}, "Bearer tok")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	if env.flows.calls["flightBookingAssistant"] != 0 {
		t.Errorf("model must not be called over quota")
	}
}

var prefs = map[string]any{
	"budget":              "mid-range",
	"travelStyle":         "relaxed",
	"interests":           "food, temples",
	"duration":            "5 days",
	"locationPreferences": "South India",
}

func TestItinerary_GuestIsNotSaved(t *testing.T) {
	env := buildTestRouter(nil)
	env.flows.add("generateTravelItinerary", map[string]any{"itinerary": "Day 1: Chennai"})

	w := doRequest(env.router, http.MethodPost, "/api/itineraries", prefs, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["itinerary"] != "Day 1: Chennai" || body["saved"] != false {
		t.Errorf("unexpected body %v", body)
	}
	if len(env.repo.items) != 0 {
		t.Errorf("guest itinerary must not be saved")
	}
}

func TestItinerary_SignedInSavesAndLists(t *testing.T) {
	env := buildTestRouter(makeVerifier("u1"))
	env.flows.add("generateTravelItinerary", map[string]any{"itinerary": "Day 1: Madurai"})

	w := doRequest(env.router, http.MethodPost, "/api/itineraries", prefs, "Bearer tok")
	if w.Code != http.StatusOK || decode(t, w)["saved"] != true {
		t.Fatalf("expected a saved itinerary, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(env.router, http.MethodGet, "/api/itineraries", nil, "Bearer tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	items, _ := decode(t, w)["itineraries"].([]any)
	if len(items) != 1 {
		t.Errorf("expected one itinerary, got %v", items)
	}

	w = doRequest(env.router, http.MethodGet, "/api/itineraries/"+env.repo.items[0].ID, nil, "Bearer tok")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w = doRequest(env.router, http.MethodGet, "/api/itineraries/0e5b1a8f-5a1e-4f0c-8f7c-3c3d1c0b9a11", nil, "Bearer tok")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w = doRequest(env.router, http.MethodGet, "/api/itineraries/not-a-uuid", nil, "Bearer tok")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestItinerary_ShortFieldIsBadRequest(t *testing.T) {
	env := buildTestRouter(nil)
	bad := map[string]any{}
	for k, v := range prefs {
		bad[k] = v
	}
	bad["interests"] = "x"

	w := doRequest(env.router, http.MethodPost, "/api/itineraries", bad, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if decode(t, w)["field"] != "interests" {
		t.Errorf("expected field interests, got %s", w.Body.String())
	}
}

func TestItinerary_ListRequiresAuth(t *testing.T) {
	env := buildTestRouter(&stubTokenVerifier{err: errors.New("no token")})
	w := doRequest(env.router, http.MethodGet, "/api/itineraries", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func startConversation(t *testing.T, env *testEnv, authHeader string) string {
	t.Helper()
	w := doRequest(env.router, http.MethodPost, "/api/assistant/conversations", nil, authHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id, _ := decode(t, w)["id"].(string)
	return id
}

var completeDetails = map[string]any{
	"origin": "Glasgow", "destination": "Chennai", "dates": "Dec 1-8", "passengers": 2,
}

func TestAssistant_CompleteDetailsReachAnalyzing(t *testing.T) {
	env := buildTestRouter(nil)
	id := startConversation(t, env, "")
	env.flows.add("flightBookingAssistant",
		map[string]any{"reply": "Searching now.", "isFlightDetailsComplete": true, "flightDetails": completeDetails},
		map[string]any{"reply": "The best flight is Lufthansa at £674.", "isFlightDetailsComplete": true},
	)

	w := doRequest(env.router, http.MethodPost, "/api/assistant/conversations/"+id+"/messages",
		map[string]any{"message": "Glasgow to Chennai, Dec 1-8, 2 people"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["phase"] != "analyzing" || body["reply"] != "The best flight is Lufthansa at £674." {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["picks"].(map[string]any); !ok {
		t.Errorf("expected picks in %v", body)
	}

	w = doRequest(env.router, http.MethodGet, "/api/assistant/conversations/"+id, nil, "")
	turns, _ := decode(t, w)["turns"].([]any)
	if len(turns) != 2 {
		t.Errorf("expected 2 stored turns, got %d", len(turns))
	}
}

func TestAssistant_FailureReturnsApology(t *testing.T) {
	env := buildTestRouter(nil)
	id := startConversation(t, env, "")
	env.flows.add("flightBookingAssistant", &flow.AdapterError{Flow: "flightBookingAssistant", Err: errors.New("boom")})

	w := doRequest(env.router, http.MethodPost, "/api/assistant/conversations/"+id+"/messages",
		map[string]any{"message": "hello"}, "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	body := decode(t, w)
	if body["reply"] != assistant.FallbackReply || body["phase"] != "gathering" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAssistant_ErrorStatuses(t *testing.T) {
	env := buildTestRouter(makeVerifier("owner"))
	id := startConversation(t, env, "Bearer tok")
	path := "/api/assistant/conversations/" + id + "/messages"

	w := doRequest(env.router, http.MethodPost, path, map[string]any{"message": "  "}, "Bearer tok")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message: expected 400, got %d", w.Code)
	}

	unlock, err := env.store.Lock(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	w = doRequest(env.router, http.MethodPost, path, map[string]any{"message": "hi"}, "Bearer tok")
	if w.Code != http.StatusConflict {
		t.Errorf("busy: expected 409, got %d", w.Code)
	}
	unlock()

	w = doRequest(env.router, http.MethodGet, "/api/assistant/conversations/"+id, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("anonymous caller: expected 404, got %d", w.Code)
	}
	w = doRequest(env.router, http.MethodGet, "/api/assistant/conversations/nope", nil, "Bearer tok")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
}

func TestAuth_SignInAndMe(t *testing.T) {
	env := buildTestRouter(makeVerifier("u1"))

	w := doRequest(env.router, http.MethodPost, "/api/auth/signin",
		map[string]any{"email": "u1@example.com", "password": "wrong"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	w = doRequest(env.router, http.MethodPost, "/api/auth/signin",
		map[string]any{"email": "u1@example.com", "password": "pw123456"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["idToken"] != "good" || body["expiresIn"] != float64(3600) {
		t.Errorf("unexpected session %v", body)
	}

	w = doRequest(env.router, http.MethodGet, "/api/auth/me", nil, "Bearer good")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	usage, _ := decode(t, w)["usage"].(map[string]any)
	if usage["remaining"] != float64(42) {
		t.Errorf("unexpected usage %v", usage)
	}

	w = doRequest(env.router, http.MethodPost, "/api/auth/signup",
		map[string]any{"name": "Ada", "email": "u1@example.com", "password": "pw123456"}, "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a taken email, got %d", w.Code)
	}
}
