package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/ticket"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/user"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/jsonutil"
)

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, ticket.ErrNotFound):
		jsonutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, preference.ErrUnknownCategory),
		errors.Is(err, preference.ErrUnknownChannel),
		errors.Is(err, notification.ErrMissingUser):
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		jsonutil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// --- users ---

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context(), limitParam(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in user.UpdateInput
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := s.users.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.users.Logout(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// --- tickets ---

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var in ticket.CreateInput
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.tickets.Create(r.Context(), in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.tickets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var in ticket.UpdateInput
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.tickets.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) handleListUserTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.ListByUser(r.Context(), mux.Vars(r)["id"], limitParam(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, tickets)
}

// --- preferences ---

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateCategories(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var in map[preference.Category]bool
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.prefs.UpdateCategories(r.Context(), userID, in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.emit(userID)
	jsonutil.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateChannels(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var in struct {
		Channels []preference.Channel `json:"channels"`
	}
	if err := decode(r, &in); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.prefs.UpdateChannels(r.Context(), userID, in.Channels)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.emit(userID)
	jsonutil.WriteJSON(w, http.StatusOK, p)
}

// --- notifications ---

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req notification.SendRequest
	if err := decode(r, &req); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := s.dispatcher.SendToUser(r.Context(), &req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	// A suppressed notification responds with a null body; suppression is
	// not an error.
	jsonutil.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.inbox.MarkRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUserNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.inbox.ListByUser(r.Context(), mux.Vars(r)["id"], limitParam(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, notifications)
}
