package proxy

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified Connect service name. Payloads are
// google.protobuf.Struct documents carrying the same JSON as the REST routes.
const ServiceName = "shopassist.v1.ShopService"

// Connect procedure paths.
const (
	SendMessageProcedure        = "/" + ServiceName + "/SendMessage"
	ListSessionsProcedure       = "/" + ServiceName + "/ListSessions"
	GetSessionMessagesProcedure = "/" + ServiceName + "/GetSessionMessages"
	SubmitFeedbackProcedure     = "/" + ServiceName + "/SubmitFeedback"
)

// ConnectHandler returns the mount path and handler for the Connect service.
func (p *Proxy) ConnectHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()

	mux.Handle(SendMessageProcedure, connect.NewUnaryHandler(SendMessageProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			body, err := protojson.Marshal(req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return structResponse(p.SendMessage(ctx, body))
		}, opts...))

	mux.Handle(ListSessionsProcedure, connect.NewUnaryHandler(ListSessionsProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			return structResponse(p.ListSessions(ctx, stringField(req.Msg, "userId")))
		}, opts...))

	mux.Handle(GetSessionMessagesProcedure, connect.NewUnaryHandler(GetSessionMessagesProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			return structResponse(p.SessionMessages(ctx, stringField(req.Msg, "sessionId")))
		}, opts...))

	mux.Handle(SubmitFeedbackProcedure, connect.NewUnaryHandler(SubmitFeedbackProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			body, err := protojson.Marshal(req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return structResponse(p.SubmitFeedback(ctx, body))
		}, opts...))

	return "/" + ServiceName + "/", mux
}

func structResponse(data []byte, err error) (*connect.Response[structpb.Struct], error) {
	if err != nil {
		return nil, connectError(err)
	}

	// The remote client already rejected bodies that are not JSON. A valid
	// document that is not an object relays as an empty Struct, which clients
	// decode to defaults.
	var out structpb.Struct
	if err := protojson.Unmarshal(data, &out); err != nil {
		out.Reset()
	}
	return connect.NewResponse(&out), nil
}

func connectError(err error) error {
	var perr *Error
	if !errors.As(err, &perr) {
		return connect.NewError(connect.CodeInternal, errors.New(http.StatusText(http.StatusInternalServerError)))
	}

	code := connect.CodeInternal
	if perr.Status == http.StatusBadRequest {
		code = connect.CodeInvalidArgument
	}
	return connect.NewError(code, errors.New(perr.Message))
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}
