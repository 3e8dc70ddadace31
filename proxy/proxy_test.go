package proxy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/tailored-agentic-units/shopassist/observability"
	"github.com/tailored-agentic-units/shopassist/proxy"
	"github.com/tailored-agentic-units/shopassist/remote"
)

// fakeUpstream records what the proxy forwarded and replies with a canned
// body or error.
type fakeUpstream struct {
	body  []byte
	err   error
	calls int

	sessionID string
	message   string
	userID    string
	feedback  []byte
}

func (f *fakeUpstream) SendMessage(ctx context.Context, sessionID, message string) ([]byte, error) {
	f.calls++
	f.sessionID, f.message = sessionID, message
	return f.body, f.err
}

func (f *fakeUpstream) ListSessions(ctx context.Context, userID string) ([]byte, error) {
	f.calls++
	f.userID = userID
	return f.body, f.err
}

func (f *fakeUpstream) SessionMessages(ctx context.Context, sessionID string) ([]byte, error) {
	f.calls++
	f.sessionID = sessionID
	return f.body, f.err
}

func (f *fakeUpstream) SubmitFeedback(ctx context.Context, feedback []byte) ([]byte, error) {
	f.calls++
	f.feedback = feedback
	return f.body, f.err
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureObserver) types() []observability.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]observability.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func newRouter(p *proxy.Proxy) *mux.Router {
	r := mux.NewRouter()
	p.Register(r.PathPrefix("/api/shop").Subrouter())
	return r
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse error body: %v; body=%s", err, rr.Body.String())
	}
	if len(m) != 1 {
		t.Errorf("error body should only carry an error field, got %v", m)
	}
	msg, _ := m["error"].(string)
	return msg
}

func TestSendMessage_PassThrough(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{"sessionId":"s-1","userId":"u-1","assistantResponse":"Try these","products":[{"id":"p1","extra":true}]}`)}
	h := newRouter(proxy.New(upstream))

	rr := serve(t, h, http.MethodPost, "/api/shop/message", `{"sessionId":"s-1","message":"running shoes"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200; body=%s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != string(upstream.body) {
		t.Errorf("body altered in transit:\n got %s\nwant %s", rr.Body.String(), upstream.body)
	}
	if upstream.sessionID != "s-1" || upstream.message != "running shoes" {
		t.Errorf("forwarded sessionId=%q message=%q", upstream.sessionID, upstream.message)
	}
}

func TestSendMessage_OptionalSession(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{}`)}
	h := newRouter(proxy.New(upstream))

	rr := serve(t, h, http.MethodPost, "/api/shop/message", `{"message":"hi"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	if upstream.sessionID != "" {
		t.Errorf("got sessionId %q, want empty", upstream.sessionID)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"sessionId":"s-1"}`},
		{"numeric message", `{"message":42}`},
		{"numeric session", `{"sessionId":7,"message":"hi"}`},
		{"not json", `message=hi`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeUpstream{body: []byte(`{}`)}
			h := newRouter(proxy.New(upstream))

			req := httptest.NewRequest(http.MethodPost, "/api/shop/message", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400; body=%s", rr.Code, rr.Body.String())
			}
			if upstream.calls != 0 {
				t.Errorf("upstream called %d times for invalid input", upstream.calls)
			}
			if msg := decodeError(t, rr); msg == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestRemoteFailures_CollapseTo500(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantMsg string
	}{
		{"send", http.MethodPost, "/api/shop/message", `{"message":"hi"}`, proxy.MsgSendFailed},
		{"sessions", http.MethodGet, "/api/shop/sessions/u-1", "", proxy.MsgSessionsFailed},
		{"history", http.MethodGet, "/api/shop/sessions/messages/s-1", "", proxy.MsgHistoryFailed},
		{"feedback", http.MethodPost, "/api/shop/feedback", `{"sessionId":"s","messageID":"m","productId":"p","rating":4}`, proxy.MsgFeedbackFailed},
	}

	upstreamErrors := []error{
		&remote.StatusError{Code: http.StatusNotFound, Status: "404 Not Found"},
		&remote.StatusError{Code: http.StatusTooManyRequests, Status: "429 Too Many Requests"},
		remote.ErrNetwork,
		remote.ErrMalformedResponse,
	}

	for _, tt := range tests {
		for _, upErr := range upstreamErrors {
			t.Run(tt.name+"/"+upErr.Error(), func(t *testing.T) {
				h := newRouter(proxy.New(&fakeUpstream{err: upErr}))

				rr := serve(t, h, tt.method, tt.path, tt.body)

				if rr.Code != http.StatusInternalServerError {
					t.Errorf("got status %d, want 500", rr.Code)
				}
				if msg := decodeError(t, rr); msg != tt.wantMsg {
					t.Errorf("got error %q, want %q", msg, tt.wantMsg)
				}
			})
		}
	}
}

func TestRoutes_PathParameters(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{"sessions":[]}`)}
	h := newRouter(proxy.New(upstream))

	rr := serve(t, h, http.MethodGet, "/api/shop/sessions/user-7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	if upstream.userID != "user-7" {
		t.Errorf("got userId %q, want %q", upstream.userID, "user-7")
	}

	rr = serve(t, h, http.MethodGet, "/api/shop/sessions/messages/sess-3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	if upstream.sessionID != "sess-3" {
		t.Errorf("got sessionId %q, want %q", upstream.sessionID, "sess-3")
	}
	if upstream.userID != "user-7" {
		t.Error("history route must not be routed as a session listing")
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{}`)}
	h := newRouter(proxy.New(upstream))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/shop/message"},
		{http.MethodDelete, "/api/shop/sessions/u-1"},
		{http.MethodPost, "/api/shop/sessions/messages/s-1"},
		{http.MethodPut, "/api/shop/feedback"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := serve(t, h, tt.method, tt.path, "")
			if rr.Code != http.StatusMethodNotAllowed {
				t.Errorf("got status %d, want 405", rr.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] != "Method Not Allowed" {
				t.Errorf("got body %q", rr.Body.String())
			}
		})
	}

	if rr := serve(t, h, http.MethodGet, "/api/shop/unknown", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path: got status %d, want 404", rr.Code)
	}
	if upstream.calls != 0 {
		t.Errorf("upstream called %d times", upstream.calls)
	}
}

func TestSubmitFeedback_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"rating below range", `{"sessionId":"s","messageID":"m","productId":"p","rating":0}`},
		{"rating above range", `{"sessionId":"s","messageID":"m","productId":"p","rating":6}`},
		{"rating as string", `{"sessionId":"s","messageID":"m","productId":"p","rating":"5"}`},
		{"missing rating", `{"sessionId":"s","messageID":"m","productId":"p"}`},
		{"missing productId", `{"sessionId":"s","messageID":"m","rating":3}`},
		{"missing messageID", `{"sessionId":"s","productId":"p","rating":3}`},
		{"missing sessionId", `{"messageID":"m","productId":"p","rating":3}`},
		{"reason not a list", `{"sessionId":"s","messageID":"m","productId":"p","rating":3,"reason":"bad"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeUpstream{body: []byte(`{}`)}
			h := newRouter(proxy.New(upstream))

			rr := serve(t, h, http.MethodPost, "/api/shop/feedback", tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("got status %d, want 400; body=%s", rr.Code, rr.Body.String())
			}
			if upstream.calls != 0 {
				t.Errorf("upstream called for invalid feedback")
			}
		})
	}
}

func TestSubmitFeedback_Forwarded(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{"status":"ok"}`)}
	h := newRouter(proxy.New(upstream))

	body := `{"sessionId":"s","messageID":"m","productId":"p","rating":5,
		"reason":["price","quality"],"reason_text":"great value","unknown":"dropped"}`
	rr := serve(t, h, http.MethodPost, "/api/shop/feedback", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200; body=%s", rr.Code, rr.Body.String())
	}

	var forwarded map[string]any
	if err := json.Unmarshal(upstream.feedback, &forwarded); err != nil {
		t.Fatalf("forwarded feedback is not JSON: %v", err)
	}
	if forwarded["rating"] != float64(5) {
		t.Errorf("got rating %v, want 5", forwarded["rating"])
	}
	if forwarded["messageID"] != "m" {
		t.Errorf("got messageID %v, want m", forwarded["messageID"])
	}
	if reasons, _ := forwarded["reason"].([]any); len(reasons) != 2 {
		t.Errorf("got reason %v, want two entries", forwarded["reason"])
	}
	if _, ok := forwarded["unknown"]; ok {
		t.Error("unknown fields should not be forwarded")
	}
	if _, ok := forwarded["user_query"]; ok {
		t.Error("absent optional fields should not be forwarded")
	}
}

func TestProxy_Observer(t *testing.T) {
	obs := &captureObserver{}
	p := proxy.New(&fakeUpstream{body: []byte(`{}`)}, proxy.WithObserver(obs))

	if _, err := p.ListSessions(context.Background(), "u1"); err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	got := obs.types()
	want := []observability.EventType{proxy.EventRelayStart, proxy.EventRelayComplete}
	if len(got) != len(want) {
		t.Fatalf("got events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProxy_ErrorUnwraps(t *testing.T) {
	p := proxy.New(&fakeUpstream{err: remote.ErrNetwork})

	_, err := p.SessionMessages(context.Background(), "s1")

	var perr *proxy.Error
	if !errors.As(err, &perr) {
		t.Fatalf("got error %T, want *proxy.Error", err)
	}
	if perr.Status != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", perr.Status)
	}
	if !errors.Is(err, remote.ErrNetwork) {
		t.Error("proxy error should wrap the upstream cause for logging")
	}
}

func TestProxy_BodyTooLarge(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{}`)}
	h := newRouter(proxy.New(upstream, proxy.WithConfig(proxy.Config{MaxBodyBytes: 16})))

	rr := serve(t, h, http.MethodPost, "/api/shop/message", `{"message":"a long shopping request"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rr.Code)
	}
	if upstream.calls != 0 {
		t.Error("upstream called for oversized body")
	}
}

// End to end through a real remote client: whatever 2xx JSON the remote
// returns comes back unchanged, and any non-2xx becomes the generic 500.
func TestRelayFidelity_RealRemote(t *testing.T) {
	status := http.StatusOK
	payload := `{"sessions":[{"id":"a","created_at":"2026-10-01T00:00:00Z","updated_at":"2026-10-02T00:00:00Z"}],"note":"é✓"}`

	remoteSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	defer remoteSrv.Close()

	client, err := remote.New(&remote.Config{BaseURL: remoteSrv.URL})
	if err != nil {
		t.Fatalf("remote.New failed: %v", err)
	}
	h := newRouter(proxy.New(client))

	rr := serve(t, h, http.MethodGet, "/api/shop/sessions/u1", "")
	if rr.Code != http.StatusOK || rr.Body.String() != payload {
		t.Errorf("got %d %s, want 200 %s", rr.Code, rr.Body.String(), payload)
	}

	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusServiceUnavailable} {
		status = code
		rr := serve(t, h, http.MethodGet, "/api/shop/sessions/u1", "")
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("remote %d: got status %d, want 500", code, rr.Code)
		}
		if msg := decodeError(t, rr); msg != proxy.MsgSessionsFailed {
			t.Errorf("remote %d: got error %q", code, msg)
		}
	}
}
