package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
)

var errBadBody = protocol.NewError(protocol.CodeBadRequest, "server: malformed request body")

// maxBody bounds command bodies
const maxBody = 1 << 16

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) session(r *http.Request) (*table.Session, error) {
	return s.tables.Get(chi.URLParam(r, "tableID"))
}

// command resolves the caller and the table, writing the error response on
// failure
func (s *Server) command(w http.ResponseWriter, r *http.Request, body any) (string, *table.Session, bool) {
	player, err := participant(r)
	if err != nil {
		s.fail(w, r, err)
		return "", nil, false
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return "", nil, false
	}
	if body != nil {
		if err := decode(r, body); err != nil {
			s.fail(w, r, err)
			return "", nil, false
		}
	}
	return player, sess, true
}

func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tables.Tables())
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	host, err := participant(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req protocol.CreateTableRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var interval time.Duration
	if req.BlindInterval != "" {
		if interval, err = time.ParseDuration(req.BlindInterval); err != nil {
			s.fail(w, r, fmt.Errorf("%w: blind_interval: %v", table.ErrBadRequest, err))
			return
		}
	}
	sess, err := s.tables.Create(r.Context(), table.Config{
		Name: req.Name, HostID: host, MaxSeats: req.MaxSeats,
		SmallBlind: req.SmallBlind, BigBlind: req.BigBlind, Ante: req.Ante,
		BlindInterval: interval, BuyInMin: req.BuyInMin, BuyInMax: req.BuyInMax,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleCloseTable(w http.ResponseWriter, r *http.Request) {
	player, err := participant(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.tables.Close(r.Context(), chi.URLParam(r, "tableID"), player); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	player, sess, ok := s.command(w, r, nil)
	if !ok {
		return
	}
	handID, state, err := sess.Deal(r.Context(), player)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.DealResponse{HandID: handID, State: state})
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	var req protocol.ActionRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	if err := sess.Act(r.Context(), player, req.HandID, req.Action, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	player, sess, ok := s.command(w, r, nil)
	if !ok {
		return
	}
	if err := sess.Heartbeat(r.Context(), player); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTimeout is open to any authenticated participant; resolution is a
// no-op unless the deadline has really passed
func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	var req protocol.TimeoutRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	resolved, err := sess.ResolveTimeout(r.Context(), req.HandID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if resolved {
		s.logger.Debug("Timeout resolved", "table", sess.ID(), "by", player)
	}
	writeJSON(w, http.StatusOK, protocol.TimeoutResponse{Resolved: resolved})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req protocol.JoinRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	name := req.Name
	if name == "" {
		name = player
	}
	seat, err := sess.Join(r.Context(), player, name, req.Seat, req.BuyIn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SeatResponse{Seat: seat, Stack: req.BuyIn})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	player, sess, ok := s.command(w, r, nil)
	if !ok {
		return
	}
	stack, err := sess.Leave(r.Context(), player)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SeatResponse{Stack: stack})
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	var req protocol.KickRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	if err := sess.Kick(r.Context(), player, req.Seat); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRebuy(w http.ResponseWriter, r *http.Request) {
	var req protocol.RebuyRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	if err := sess.Rebuy(r.Context(), player, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req protocol.ChatRequest
	player, sess, ok := s.command(w, r, &req)
	if !ok {
		return
	}
	if err := sess.Chat(r.Context(), player, req.Emoji); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMyCards serves hole cards to their owner only; the owner is the
// token subject, never a request parameter
func (s *Server) handleMyCards(w http.ResponseWriter, r *http.Request) {
	player, sess, ok := s.command(w, r, nil)
	if !ok {
		return
	}
	handID := chi.URLParam(r, "handID")
	if handID == "current" {
		handID = ""
	}
	cards, err := sess.MyCards(r.Context(), player, handID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	records, err := sess.Actions(r.Context(), chi.URLParam(r, "handID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := sess.Result(r.Context(), chi.URLParam(r, "handID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTournaments(w http.ResponseWriter, _ *http.Request) {
	if s.tournaments == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, s.tournaments.List())
}

func (s *Server) handleTournament(w http.ResponseWriter, r *http.Request) {
	if s.tournaments == nil {
		s.fail(w, r, table.ErrNotFound)
		return
	}
	info, err := s.tournaments.Info(chi.URLParam(r, "tournamentID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	player, err := participant(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.tournaments == nil {
		s.fail(w, r, table.ErrNotFound)
		return
	}
	if err := s.tournaments.Register(chi.URLParam(r, "tournamentID"), player); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
