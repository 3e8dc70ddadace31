package proxy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/shopassist/proxy"
)

func newConnectServer(t *testing.T, upstream proxy.Upstream) *httptest.Server {
	t.Helper()
	path, handler := proxy.New(upstream).ConnectHandler()
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct failed: %v", err)
	}
	return s
}

func TestConnect_SendMessage(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{"sessionId":"s-9","assistantResponse":"Here you go","products":[]}`)}
	srv := newConnectServer(t, upstream)

	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+proxy.SendMessageProcedure)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(mustStruct(t, map[string]any{
		"sessionId": "s-9",
		"message":   "a rain jacket",
	})))
	if err != nil {
		t.Fatalf("CallUnary failed: %v", err)
	}

	if upstream.sessionID != "s-9" || upstream.message != "a rain jacket" {
		t.Errorf("forwarded sessionId=%q message=%q", upstream.sessionID, upstream.message)
	}
	if got := resp.Msg.GetFields()["assistantResponse"].GetStringValue(); got != "Here you go" {
		t.Errorf("got assistantResponse %q", got)
	}
}

func TestConnect_ListSessions(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`{"sessions":[{"id":"a"},{"id":"b"}]}`)}
	srv := newConnectServer(t, upstream)

	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+proxy.ListSessionsProcedure)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(mustStruct(t, map[string]any{"userId": "u-2"})))
	if err != nil {
		t.Fatalf("CallUnary failed: %v", err)
	}

	if upstream.userID != "u-2" {
		t.Errorf("got userId %q, want u-2", upstream.userID)
	}
	if n := len(resp.Msg.GetFields()["sessions"].GetListValue().GetValues()); n != 2 {
		t.Errorf("got %d sessions, want 2", n)
	}
}

func TestConnect_ErrorCodes(t *testing.T) {
	tests := []struct {
		name      string
		procedure string
		upstream  *fakeUpstream
		req       map[string]any
		wantCode  connect.Code
		wantMsg   string
	}{
		{
			name:      "missing message",
			procedure: proxy.SendMessageProcedure,
			upstream:  &fakeUpstream{body: []byte(`{}`)},
			req:       map[string]any{"sessionId": "s"},
			wantCode:  connect.CodeInvalidArgument,
			wantMsg:   "message is required",
		},
		{
			name:      "missing session id",
			procedure: proxy.GetSessionMessagesProcedure,
			upstream:  &fakeUpstream{body: []byte(`{}`)},
			req:       map[string]any{},
			wantCode:  connect.CodeInvalidArgument,
			wantMsg:   "sessionId is required",
		},
		{
			name:      "rating out of range",
			procedure: proxy.SubmitFeedbackProcedure,
			upstream:  &fakeUpstream{body: []byte(`{}`)},
			req:       map[string]any{"sessionId": "s", "messageID": "m", "productId": "p", "rating": 9},
			wantCode:  connect.CodeInvalidArgument,
			wantMsg:   "rating must be at most 5",
		},
		{
			name:      "upstream failure",
			procedure: proxy.ListSessionsProcedure,
			upstream:  &fakeUpstream{err: context.DeadlineExceeded},
			req:       map[string]any{"userId": "u"},
			wantCode:  connect.CodeInternal,
			wantMsg:   proxy.MsgSessionsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newConnectServer(t, tt.upstream)
			client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+tt.procedure)

			_, err := client.CallUnary(context.Background(), connect.NewRequest(mustStruct(t, tt.req)))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := connect.CodeOf(err); got != tt.wantCode {
				t.Errorf("got code %v, want %v", got, tt.wantCode)
			}
			var cerr *connect.Error
			if !errors.As(err, &cerr) || cerr.Message() != tt.wantMsg {
				t.Errorf("got message %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestConnect_NonObjectReplyRelaysEmpty(t *testing.T) {
	upstream := &fakeUpstream{body: []byte(`null`)}
	srv := newConnectServer(t, upstream)

	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+proxy.SendMessageProcedure)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(mustStruct(t, map[string]any{
		"message": "hi",
	})))
	if err != nil {
		t.Fatalf("CallUnary failed: %v", err)
	}
	if n := len(resp.Msg.GetFields()); n != 0 {
		t.Errorf("got %d fields, want an empty struct", n)
	}
}
