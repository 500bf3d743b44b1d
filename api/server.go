package api

import (
	"net/http"
	"time"

	"splitledger/config"
	"splitledger/service"

	log "github.com/sirupsen/logrus"
)

// Services bundles the procedures exposed over HTTP
type Services struct {
	Users    service.UserService
	Expenses service.ExpenseService
	Friends  service.FriendService
	Groups   service.GroupService
	Balances service.BalanceService
	Imports  service.ImportService
	Exports  service.ExportService
}

// Server exposes ledger procedures as JSON over HTTP
type Server struct {
	services Services
	mux      *http.ServeMux
}

// NewServer creates a server and registers every route
func NewServer(services Services) *Server {
	s := &Server{
		services: services,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.mux.HandleFunc("POST /users", s.handleRegisterUser)
	s.mux.HandleFunc("GET /me", s.withActor(s.handleGetMe))
	s.mux.HandleFunc("PATCH /me", s.withActor(s.handleUpdateMe))

	s.mux.HandleFunc("POST /expenses", s.withActor(s.handleAddExpense))
	s.mux.HandleFunc("GET /expenses/{id}", s.withActor(s.handleGetExpense))
	s.mux.HandleFunc("PUT /expenses/{id}", s.withActor(s.handleEditExpense))
	s.mux.HandleFunc("DELETE /expenses/{id}", s.withActor(s.handleDeleteExpense))
	s.mux.HandleFunc("POST /settlements", s.withActor(s.handleRecordSettlement))

	s.mux.HandleFunc("GET /balances", s.withActor(s.handleGetBalances))
	s.mux.HandleFunc("GET /friends/{id}/balances", s.withActor(s.handleGetFriendBalances))
	s.mux.HandleFunc("GET /friends/{id}/expenses", s.withActor(s.handleListFriendExpenses))
	s.mux.HandleFunc("DELETE /friends/{id}", s.withActor(s.handleDeleteFriend))

	s.mux.HandleFunc("GET /groups", s.withActor(s.handleListGroups))
	s.mux.HandleFunc("POST /groups", s.withActor(s.handleCreateGroup))
	s.mux.HandleFunc("GET /groups/{id}", s.withActor(s.handleGetGroup))
	s.mux.HandleFunc("DELETE /groups/{id}", s.withActor(s.handleDeleteGroup))
	s.mux.HandleFunc("POST /groups/{id}/members", s.withActor(s.handleAddGroupMember))
	s.mux.HandleFunc("POST /groups/{id}/leave", s.withActor(s.handleLeaveGroup))
	s.mux.HandleFunc("GET /groups/{id}/balances", s.withActor(s.handleGetGroupBalances))
	s.mux.HandleFunc("GET /groups/{id}/expenses", s.withActor(s.handleListGroupExpenses))

	s.mux.HandleFunc("POST /import/splitwise", s.withActor(s.handleImportSplitwise))
	s.mux.HandleFunc("GET /export", s.withActor(s.handleExport))
}

// ServeHTTP implements http.Handler with request logging
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(recorder, r)

	log.WithFields(log.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   recorder.status,
		"duration": time.Since(start),
	}).Debug("Handled request")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// NewHTTPServer wraps handler in an http.Server using the configured address and timeouts
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}
}
