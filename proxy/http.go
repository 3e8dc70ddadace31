package proxy

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/tailored-agentic-units/shopassist/core/protocol"
)

// Register mounts the REST routes on r. Mount r under a prefix such as
// /api/shop with PathPrefix(...).Subrouter(). A known path called with the
// wrong method gets a 405.
func (p *Proxy) Register(r *mux.Router) {
	r.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowed)
	r.HandleFunc("/message", p.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/messages/{sessionId}", p.handleSessionMessages).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{userId}", p.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/feedback", p.handleSubmitFeedback).Methods(http.MethodPost)
}

func (p *Proxy) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	body, err := p.readBody(w, r)
	if err != nil {
		renderError(w, badRequest("invalid request body", err))
		return
	}
	data, err := p.SendMessage(r.Context(), body)
	respond(w, data, err)
}

func (p *Proxy) handleListSessions(w http.ResponseWriter, r *http.Request) {
	data, err := p.ListSessions(r.Context(), mux.Vars(r)["userId"])
	respond(w, data, err)
}

func (p *Proxy) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	data, err := p.SessionMessages(r.Context(), mux.Vars(r)["sessionId"])
	respond(w, data, err)
}

func (p *Proxy) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	body, err := p.readBody(w, r)
	if err != nil {
		renderError(w, badRequest("invalid request body", err))
		return
	}
	data, err := p.SubmitFeedback(r.Context(), body)
	respond(w, data, err)
}

func (p *Proxy) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.cfg.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

func respond(w http.ResponseWriter, data []byte, err error) {
	if err != nil {
		var perr *Error
		if !errors.As(err, &perr) {
			perr = upstreamFailure(http.StatusText(http.StatusInternalServerError), err)
		}
		renderError(w, perr)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// MethodNotAllowed writes a 405 with the proxy's error body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	status := http.StatusMethodNotAllowed
	renderError(w, &Error{Status: status, Message: http.StatusText(status)})
}

func renderError(w http.ResponseWriter, perr *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(perr.Status)
	_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: perr.Message})
}
