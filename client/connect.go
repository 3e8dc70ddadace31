package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
	"github.com/tailored-agentic-units/shopassist/proxy"
)

type structClient = connect.Client[structpb.Struct, structpb.Struct]

// ConnectClient calls the proxy's Connect service. It offers the same
// methods as Client.
type ConnectClient struct {
	send     *structClient
	sessions *structClient
	history  *structClient
	feedback *structClient
}

// NewConnect creates a ConnectClient for the server at baseURL (the server
// root, not the REST prefix).
func NewConnect(hc connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ConnectClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")
	return &ConnectClient{
		send:     connect.NewClient[structpb.Struct, structpb.Struct](hc, base+proxy.SendMessageProcedure, opts...),
		sessions: connect.NewClient[structpb.Struct, structpb.Struct](hc, base+proxy.ListSessionsProcedure, opts...),
		history:  connect.NewClient[structpb.Struct, structpb.Struct](hc, base+proxy.GetSessionMessagesProcedure, opts...),
		feedback: connect.NewClient[structpb.Struct, structpb.Struct](hc, base+proxy.SubmitFeedbackProcedure, opts...),
	}
}

// SendMessage posts a chat message.
func (c *ConnectClient) SendMessage(ctx context.Context, req protocol.SendRequest) (protocol.SendResponse, error) {
	data, err := call(ctx, c.send, req)
	if err != nil {
		return protocol.SendResponse{}, err
	}
	return protocol.DecodeSendResponse(data)
}

// ListSessions fetches the sessions of userID.
func (c *ConnectClient) ListSessions(ctx context.Context, userID string) (protocol.SessionList, error) {
	data, err := call(ctx, c.sessions, map[string]string{"userId": userID})
	if err != nil {
		return protocol.SessionList{}, err
	}
	return protocol.DecodeSessionList(data)
}

// SessionMessages fetches the history of sessionID.
func (c *ConnectClient) SessionMessages(ctx context.Context, sessionID string) (protocol.SessionHistory, error) {
	data, err := call(ctx, c.history, map[string]string{"sessionId": sessionID})
	if err != nil {
		return protocol.SessionHistory{}, err
	}
	return protocol.DecodeSessionHistory(data)
}

// SubmitFeedback rates a recommended product.
func (c *ConnectClient) SubmitFeedback(ctx context.Context, fb protocol.FeedbackRequest) error {
	_, err := call(ctx, c.feedback, fb)
	return err
}

// call round-trips v through JSON into a Struct and returns the reply as JSON.
func call(ctx context.Context, sc *structClient, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	var msg structpb.Struct
	if err := protojson.Unmarshal(raw, &msg); err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	resp, err := sc.CallUnary(ctx, connect.NewRequest(&msg))
	if err != nil {
		return nil, requestError(err)
	}

	data, err := protojson.Marshal(resp.Msg)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return data, nil
}

func requestError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return &RequestError{Message: err.Error()}
	}

	status := http.StatusInternalServerError
	switch cerr.Code() {
	case connect.CodeInvalidArgument:
		status = http.StatusBadRequest
	case connect.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case connect.CodeNotFound, connect.CodeUnimplemented:
		status = http.StatusNotFound
	}
	return &RequestError{Status: status, Message: cerr.Message()}
}
