package rest

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/restqlite/restqlite/pkg/auth"
	"github.com/restqlite/restqlite/pkg/httputil"
	"github.com/restqlite/restqlite/pkg/metrics"
	"github.com/restqlite/restqlite/pkg/policy"
	"github.com/restqlite/restqlite/pkg/schema"
)

// IdentityResolver resolves a request to a caller, or nil for anonymous.
type IdentityResolver interface {
	Resolve(r *http.Request) *auth.User
}

// Options configures a Server.
type Options struct {
	// SigningSecret signs access tokens. Required for the auth
	// endpoints to issue verifiable tokens.
	SigningSecret string
	// TokenTTL bounds token lifetime; zero means the default.
	TokenTTL time.Duration
	Logger   *zap.Logger
	// RouterOptions configure the underlying HTTP server (e.g. TLS).
	RouterOptions []httputil.RouterOptions
}

// Server exposes every table of the database as a generic REST resource.
// Schema, policy tags, and identities are derived fresh on each request;
// there is no cross-request caching, so DDL and policy edits take effect
// on the next request.
type Server struct {
	db           *sql.DB
	router       *httputil.Router
	introspector *schema.Introspector
	tags         *policy.Store
	users        *auth.Store
	signer       *auth.Signer
	resolver     IdentityResolver
	logger       *zap.Logger
}

func NewServer(db *sql.DB, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	users := auth.NewStore(db)
	signer := auth.NewSigner(opts.SigningSecret, opts.TokenTTL)

	s := &Server{
		db:           db,
		router:       httputil.NewRouter(opts.RouterOptions...),
		introspector: schema.NewIntrospector(db),
		tags:         policy.NewStore(db),
		users:        users,
		signer:       signer,
		resolver:     auth.NewResolver(users, signer, logger),
		logger:       logger,
	}

	s.registerHandlers()
	return s
}

// AddMiddleware wraps the whole route table.
func (s *Server) AddMiddleware(mw ...httputil.Middleware) {
	for _, m := range mw {
		s.router.Use(m)
	}
}

func (s *Server) registerHandlers() {
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("POST /signup", s.handleSignup)
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("GET /{table}", s.handleRead)
	s.router.HandleFunc("POST /{table}", s.handleCreate)
	s.router.HandleFunc("PUT /{table}/{id}", s.handleUpdate)
	s.router.HandleFunc("DELETE /{table}/{id}", s.handleDelete)
}

// Handler returns the server's HTTP handler, for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// Start serves on the given address until the listener fails or the
// server is shut down.
func (s *Server) Start(addr string) error {
	s.logger.Info("server starting", zap.String("addr", addr))
	return s.router.ListenAndServe(addr)
}

// Shutdown gracefully shuts down the HTTP server. The database handle
// belongs to the caller and is not closed here.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.router.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "restqlite API server"})
}

// loadTable runs the first stage of every table request: the reserved
// check, then existence, then the column set — all before any identity
// or policy work.
func (s *Server) loadTable(r *http.Request) (schema.Table, error) {
	name := r.PathValue("table")
	if schema.Reserved(name) {
		return schema.Table{}, errBadRequest(fmt.Sprintf("table %q is reserved", name))
	}

	exists, err := s.introspector.TableExists(r.Context(), name)
	if err != nil {
		return schema.Table{}, err
	}
	if !exists {
		return schema.Table{}, errNotFound(fmt.Sprintf("table %q not found", name))
	}

	return s.introspector.Load(r.Context(), name)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errBadRequest("row id must be an integer")
	}
	return id, nil
}

// handleRead serves GET /{table}. Query parameters are exact-match
// column filters, conjoined; unknown keys reject the whole request.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := s.loadTable(r)
	if err != nil {
		respondError(w, err)
		return
	}

	caller := s.resolver.Resolve(r)

	tags, err := s.tags.Tags(ctx, table.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	scope, err := authorizeRead(table, tags, caller, r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	if scope.empty {
		httputil.JSON(w, http.StatusOK, map[string]any{"data": []map[string]any{}})
		return
	}

	filters := make([]filter, 0, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if !table.HasColumn(key) {
			respondError(w, errBadRequest(fmt.Sprintf("unknown query parameter %q", key)))
			return
		}
		if scope.pinOwner && key == OwnershipColumn {
			continue // replaced by the pinned filter below
		}
		if len(values) > 0 {
			filters = append(filters, filter{column: key, value: values[0]})
		}
	}
	if scope.pinOwner {
		filters = append(filters, filter{column: OwnershipColumn, value: scope.ownerID})
	}

	query, args := buildSelect(table, filters)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.QueryErrors.WithLabelValues("select").Inc()
		s.logger.Error("select failed", zap.String("table", table.Name), zap.Error(err))
		respondError(w, err)
		return
	}
	defer rows.Close()

	results, err := rowsToMaps(rows)
	if err != nil {
		respondError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"data": results})
}

// handleCreate serves POST /{table}.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := s.loadTable(r)
	if err != nil {
		respondError(w, err)
		return
	}

	caller := s.resolver.Resolve(r)

	tags, err := s.tags.Tags(ctx, table.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	patch, err := parsePatch(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := authorizeWrite(table, tags, caller, opCreate, patch, nil); err != nil {
		respondError(w, err)
		return
	}

	if err := patch.validate(table); err != nil {
		respondError(w, err)
		return
	}

	query, args, err := buildInsert(table, patch)
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		metrics.QueryErrors.WithLabelValues("insert").Inc()
		s.logger.Error("insert failed", zap.String("table", table.Name), zap.Error(err))
		respondError(w, err)
		return
	}

	// Merge the generated key into the response when the table has an
	// integer id and the client didn't supply one.
	if _, supplied := patch["id"]; !supplied && table.HasColumn("id") {
		id, err := res.LastInsertId()
		if err != nil {
			respondError(w, err)
			return
		}
		patch["id"] = id
	}

	httputil.JSON(w, http.StatusCreated, patch)
}

// handleUpdate serves PUT /{table}/{id}. The addressed row must exist,
// and the response is the row re-read from storage so that triggers and
// defaults are reflected.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := s.loadTable(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !table.HasColumn("id") {
		respondError(w, errBadRequest(fmt.Sprintf("table %q has no id column", table.Name)))
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	caller := s.resolver.Resolve(r)

	tags, err := s.tags.Tags(ctx, table.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	patch, err := parsePatch(r)
	if err != nil {
		respondError(w, err)
		return
	}

	existing, err := s.fetchRow(ctx, table, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if existing == nil {
		respondError(w, errNotFound("row not found"))
		return
	}

	if err := authorizeWrite(table, tags, caller, opUpdate, patch, existing[OwnershipColumn]); err != nil {
		respondError(w, err)
		return
	}

	if err := patch.validate(table); err != nil {
		respondError(w, err)
		return
	}

	query, args, err := buildUpdate(table, patch, id)
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		metrics.QueryErrors.WithLabelValues("update").Inc()
		s.logger.Error("update failed", zap.String("table", table.Name), zap.Error(err))
		respondError(w, err)
		return
	}

	updated, err := s.fetchRow(ctx, table, id)
	if err != nil {
		respondError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, updated)
}

// handleDelete serves DELETE /{table}/{id}. The addressed row must
// exist; deletion is a hard delete.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := s.loadTable(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if !table.HasColumn("id") {
		respondError(w, errBadRequest(fmt.Sprintf("table %q has no id column", table.Name)))
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	caller := s.resolver.Resolve(r)

	tags, err := s.tags.Tags(ctx, table.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	existing, err := s.fetchRow(ctx, table, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if existing == nil {
		respondError(w, errNotFound("row not found"))
		return
	}

	if err := authorizeWrite(table, tags, caller, opDelete, nil, existing[OwnershipColumn]); err != nil {
		respondError(w, err)
		return
	}

	query, args := buildDelete(table, id)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		metrics.QueryErrors.WithLabelValues("delete").Inc()
		s.logger.Error("delete failed", zap.String("table", table.Name), zap.Error(err))
		respondError(w, err)
		return
	}

	httputil.NoContent(w, http.StatusNoContent)
}
