package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	votingsession "plenary/contexts/governance/voting-session"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	votinghttp "plenary/contexts/governance/voting-session/transport/http"
	"plenary/internal/platform/authn"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "plenary/internal/platform/httpserver/docs"
)

const maxBodyBytes = 1 << 20

type Options struct {
	EnableExternalVotes bool
}

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	voting  votingsession.Module
	tokens  *authn.Issuer
	options Options
	http    *http.Server
}

func New(
	voting votingsession.Module,
	tokens *authn.Issuer,
	logger *slog.Logger,
	addr string,
	options Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		voting:  voting,
		tokens:  tokens,
		options: options,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/auth/token", s.handleIssueToken)
	s.mux.HandleFunc("POST /v1/members", s.requireAdmin(s.handleRegisterMember))
	s.mux.HandleFunc("GET /v1/members/exists", s.handleMemberExists)
	s.mux.HandleFunc("GET /v1/members/me", s.requireMember(s.handleCurrentMember))

	s.mux.HandleFunc("POST /v1/topics", s.requireAdmin(s.handleCreateTopic))
	s.mux.HandleFunc("GET /v1/topics/mine", s.requireAdmin(s.handleListOwnerTopics))
	s.mux.HandleFunc("GET /v1/topics/active", s.requireMember(s.handleListActiveTopics))
	s.mux.HandleFunc("GET /v1/topics/{topic_id}", s.handleGetActiveTopic)
	s.mux.HandleFunc("GET /v1/topics/{topic_id}/details", s.requireAdmin(s.handleTopicDetails))
	s.mux.HandleFunc("POST /v1/topics/{topic_id}/session", s.requireAdmin(s.handleOpenSession))
	s.mux.HandleFunc("POST /v1/topics/{topic_id}/votes/internal", s.requireMember(s.handleCastInternalVote))
	if s.options.EnableExternalVotes {
		s.mux.HandleFunc("POST /v1/topics/{topic_id}/votes/external", s.handleCastExternalVote)
	}
	s.mux.HandleFunc("GET /v1/topics/{topic_id}/status", s.handleStatus)
}

type memberHandler func(w http.ResponseWriter, r *http.Request, principal authn.Principal)

// requireMember admits requests carrying a valid bearer token.
func (s *Server) requireMember(next memberHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" || s.tokens == nil {
			writeError(w, http.StatusUnauthorized, string(domainerrors.KindAuth), "bearer token is required")
			return
		}
		principal, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.Warn("bearer token rejected",
				"event", "http_bearer_token_rejected",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"path", r.URL.Path,
				"error", err.Error(),
			)
			writeError(w, http.StatusUnauthorized, string(domainerrors.KindAuth), "invalid bearer token")
			return
		}
		next(w, r, principal)
	}
}

// requireAdmin admits bearer holders whose token carries the admin claim.
func (s *Server) requireAdmin(next memberHandler) http.HandlerFunc {
	return s.requireMember(func(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
		if !principal.Admin {
			s.logger.Warn("admin route refused",
				"event", "http_admin_route_refused",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"path", r.URL.Path,
				"identity", principal.Identity,
			)
			writeError(w, http.StatusForbidden, string(domainerrors.KindAuth), domainerrors.ErrForbidden.Error())
			return
		}
		next(w, r, principal)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.IssueTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := s.voting.Handler.AuthenticateHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if s.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "token issuance is not configured")
		return
	}
	token, expiresAt, err := s.tokens.Issue(member.Identity, member.Admin)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votinghttp.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}

func (s *Server) handleRegisterMember(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	var req votinghttp.RegisterMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.RegisterMemberHandler(r.Context(), principal.Identity, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMemberExists(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.MemberExistsHandler(r.Context(), r.URL.Query().Get("identity"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentMember(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	resp, err := s.voting.Handler.CurrentMemberHandler(r.Context(), principal.Identity, principal.Admin)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	var req votinghttp.CreateTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.CreateTopicHandler(r.Context(), principal.Identity, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListOwnerTopics(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	resp, err := s.voting.Handler.ListOwnerTopicsHandler(r.Context(), principal.Identity, r.URL.Query().Get("category"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListActiveTopics(w http.ResponseWriter, r *http.Request, _ authn.Principal) {
	resp, err := s.voting.Handler.ListActiveTopicsHandler(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetActiveTopic(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.GetActiveTopicHandler(r.Context(), r.PathValue("topic_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTopicDetails(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	resp, err := s.voting.Handler.TopicDetailsHandler(r.Context(), r.PathValue("topic_id"), principal.Identity)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	var req votinghttp.OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.OpenSessionHandler(r.Context(), r.PathValue("topic_id"), principal.Identity, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCastInternalVote(w http.ResponseWriter, r *http.Request, principal authn.Principal) {
	var req votinghttp.InternalVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.CastInternalVoteHandler(r.Context(), r.PathValue("topic_id"), principal.Identity, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastExternalVote(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.ExternalVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.CastExternalVoteHandler(r.Context(), r.PathValue("topic_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.StatusHandler(r.Context(), r.PathValue("topic_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domainerrors.KindOf(err)
	switch kind {
	case domainerrors.KindValidation:
		writeError(w, http.StatusBadRequest, string(kind), err.Error())
	case domainerrors.KindNotFound, domainerrors.KindNoActiveSession:
		writeError(w, http.StatusNotFound, string(kind), err.Error())
	case domainerrors.KindConflict:
		writeError(w, http.StatusConflict, string(kind), err.Error())
	case domainerrors.KindAuth:
		status := http.StatusUnauthorized
		if errors.Is(err, domainerrors.ErrForbidden) {
			status = http.StatusForbidden
		}
		writeError(w, status, string(kind), err.Error())
	default:
		s.logger.Error("request failed with internal error",
			"event", "http_request_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, string(domainerrors.KindValidation), "invalid JSON request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
