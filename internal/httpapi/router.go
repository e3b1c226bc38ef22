// Package httpapi exposes the CRUD and notification surface over HTTP.
// Handlers validate input and translate the typed errors of the core into
// status codes; authentication is handled upstream.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ChandanKumar-Singh/backend-sub000/internal/notification"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/preference"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/ticket"
	"github.com/ChandanKumar-Singh/backend-sub000/internal/user"
	"github.com/ChandanKumar-Singh/backend-sub000/pkg/jsonutil"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	users      *user.Service
	tickets    *ticket.Service
	prefs      *preference.Store
	dispatcher *notification.Dispatcher
	inbox      notification.Repository
	emit       PreferenceEmitter
	logger     *slog.Logger
}

// PreferenceEmitter emits the preference-update domain event after a
// preference mutation. The emission does not block the response.
type PreferenceEmitter func(userID string)

func NewServer(
	users *user.Service,
	tickets *ticket.Service,
	prefs *preference.Store,
	dispatcher *notification.Dispatcher,
	inbox notification.Repository,
	emit PreferenceEmitter,
	logger *slog.Logger,
) *Server {
	return &Server{
		users:      users,
		tickets:    tickets,
		prefs:      prefs,
		dispatcher: dispatcher,
		inbox:      inbox,
		emit:       emit,
		logger:     logger,
	}
}

// Handler builds the full route table wrapped in otel instrumentation.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	v1.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPatch)
	v1.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	v1.HandleFunc("/users/{id}/logout", s.handleLogout).Methods(http.MethodPost)

	v1.HandleFunc("/tickets", s.handleCreateTicket).Methods(http.MethodPost)
	v1.HandleFunc("/tickets/{id}", s.handleGetTicket).Methods(http.MethodGet)
	v1.HandleFunc("/tickets/{id}", s.handleUpdateTicket).Methods(http.MethodPatch)
	v1.HandleFunc("/users/{id}/tickets", s.handleListUserTickets).Methods(http.MethodGet)

	v1.HandleFunc("/users/{id}/preferences", s.handleGetPreference).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}/preferences/categories", s.handleUpdateCategories).Methods(http.MethodPut)
	v1.HandleFunc("/users/{id}/preferences/channels", s.handleUpdateChannels).Methods(http.MethodPut)

	v1.HandleFunc("/notifications", s.handleSendNotification).Methods(http.MethodPost)
	v1.HandleFunc("/notifications/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}/notifications", s.handleListUserNotifications).Methods(http.MethodGet)

	return otelhttp.NewHandler(r, "httpapi")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "active",
		"date":   time.Now().Format(time.DateTime),
	})
}
