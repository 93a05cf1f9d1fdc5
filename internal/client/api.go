// Package client talks to a holdem server: API sends commands over HTTP and
// Stream relays a table's broadcast topics over a websocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// API is an HTTP client for the command endpoints
type API struct {
	base  string
	token string
	http  *http.Client
}

// NewAPI returns a client for baseURL authenticating with token
func NewAPI(baseURL, token string) *API {
	return &API{
		base:  baseURL,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *API) tablePath(tableID string, parts ...string) string {
	p := "/v1/tables/" + url.PathEscape(tableID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends body as JSON and decodes the response into out. Rejections come
// back as *protocol.Error so callers can match them with errors.Is.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er protocol.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != nil {
			return er.Error
		}
		return protocol.NewError(statusCode(resp.StatusCode), fmt.Sprintf("%s %s: %s", method, path, resp.Status))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusCode(status int) protocol.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return protocol.CodeNotAuthorized
	case http.StatusNotFound:
		return protocol.CodeNotFound
	case http.StatusBadRequest:
		return protocol.CodeBadRequest
	case http.StatusTooManyRequests, http.StatusConflict:
		return protocol.CodeConflict
	default:
		return protocol.CodeInternal
	}
}

// State fetches the public snapshot of a table
func (a *API) State(ctx context.Context, tableID string) (protocol.PublicState, error) {
	var ps protocol.PublicState
	err := a.do(ctx, http.MethodGet, a.tablePath(tableID, "state"), nil, &ps)
	return ps, err
}

// MyCards fetches the caller's hole cards; an empty handID means the current hand
func (a *API) MyCards(ctx context.Context, tableID, handID string) (protocol.MyCards, error) {
	if handID == "" {
		handID = "current"
	}
	var mc protocol.MyCards
	err := a.do(ctx, http.MethodGet, a.tablePath(tableID, "hands", handID, "cards"), nil, &mc)
	return mc, err
}

// Act submits a betting decision
func (a *API) Act(ctx context.Context, tableID string, req protocol.ActionRequest) error {
	return a.do(ctx, http.MethodPost, a.tablePath(tableID, "actions"), req, nil)
}

// Deal starts the next hand
func (a *API) Deal(ctx context.Context, tableID string) (protocol.DealResponse, error) {
	var dr protocol.DealResponse
	err := a.do(ctx, http.MethodPost, a.tablePath(tableID, "deal"), nil, &dr)
	return dr, err
}

// Heartbeat reports the caller's seat as live
func (a *API) Heartbeat(ctx context.Context, tableID string) error {
	return a.do(ctx, http.MethodPost, a.tablePath(tableID, "heartbeat"), nil, nil)
}

// ResolveTimeout asks the server to act for a stalled seat. It reports false
// when the server judged the turn not yet overdue.
func (a *API) ResolveTimeout(ctx context.Context, tableID, handID string) (bool, error) {
	var tr protocol.TimeoutResponse
	err := a.do(ctx, http.MethodPost, a.tablePath(tableID, "timeout"), protocol.TimeoutRequest{HandID: handID}, &tr)
	return tr.Resolved, err
}

// Join takes a seat; seat 0 picks the lowest free seat
func (a *API) Join(ctx context.Context, tableID string, req protocol.JoinRequest) (protocol.SeatResponse, error) {
	var sr protocol.SeatResponse
	err := a.do(ctx, http.MethodPost, a.tablePath(tableID, "seats"), req, &sr)
	return sr, err
}

// Leave gives up the caller's seat
func (a *API) Leave(ctx context.Context, tableID string) (protocol.SeatResponse, error) {
	var sr protocol.SeatResponse
	err := a.do(ctx, http.MethodDelete, a.tablePath(tableID, "seats", "me"), nil, &sr)
	return sr, err
}

// Result fetches a settled hand
func (a *API) Result(ctx context.Context, tableID, handID string) (protocol.HandResult, error) {
	var hr protocol.HandResult
	err := a.do(ctx, http.MethodGet, a.tablePath(tableID, "hands", handID, "result"), nil, &hr)
	return hr, err
}

// Actions fetches the action log of a hand
func (a *API) Actions(ctx context.Context, tableID, handID string) ([]protocol.ActionRecord, error) {
	var records []protocol.ActionRecord
	err := a.do(ctx, http.MethodGet, a.tablePath(tableID, "hands", handID, "actions"), nil, &records)
	return records, err
}
