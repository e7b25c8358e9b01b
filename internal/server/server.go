// Package server is a development REST backend. It serves the collection
// endpoints over any types.Backend using the same envelope the rest client
// reads, so the CLI and tests can run without the production API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/agencydesk/internal/controller"
	"github.com/mesh-intelligence/agencydesk/internal/metrics"
	"github.com/mesh-intelligence/agencydesk/internal/rest"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Options configures a Server.
type Options struct {
	Backend types.Backend
	// Token is the bearer credential every /api request must carry. A random
	// token is generated when empty.
	Token string
	// Email and Password are the only credentials sign-in accepts.
	Email    string
	Password string
	Logger   *zap.SugaredLogger
	Metrics  *metrics.Collectors
}

// Server routes the collection endpoints.
type Server struct {
	router   *gin.Engine
	backend  types.Backend
	token    string
	email    string
	password string
	logger   *zap.SugaredLogger
	metrics  *metrics.Collectors
}

// New builds the router.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:   gin.New(),
		backend:  opts.Backend,
		token:    opts.Token,
		email:    opts.Email,
		password: opts.Password,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.token == "" {
		s.token = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	s.setupRoutes()
	return s
}

// Token returns the bearer credential the server accepts.
func (s *Server) Token() string { return s.token }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	api.POST("/auth/signin", s.handleSignIn)

	records := api.Group("/", s.authMiddleware())
	records.GET("/:collection", s.handleList)
	records.POST("/:collection", s.handleCreate)
	records.GET("/:collection/:id", s.handleGet)
	records.PUT("/:collection/:id", s.handleUpdate)
	records.DELETE("/:collection/:id", s.handleDelete)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), latency)
		}
		s.logger.Infow("API Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", latency,
		)
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	want := "Bearer " + s.token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			s.respondError(c, http.StatusUnauthorized, "Unauthorized. Please login again.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("API server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.logger.Infow("API server stopped", "addr", addr)
		return nil
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := s.decode(c, &req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if s.email == "" || req.Email != s.email || req.Password != s.password {
		s.respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.respond(c, http.StatusOK, rest.TokenEnvelope{
		Data:    rest.TokenData{Token: s.token},
		Message: "Signed in successfully",
	})
}

func (s *Server) handleList(c *gin.Context) {
	spec, gw, ok := s.gateway(c)
	if !ok {
		return
	}
	records, err := gw.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, rest.ListEnvelope{
		Data: map[string][]types.Record{spec.Name: records},
	})
}

func (s *Server) handleGet(c *gin.Context) {
	spec, gw, ok := s.gateway(c)
	if !ok {
		return
	}
	rec, err := gw.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondRecord(c, http.StatusOK, spec, rec, "")
}

func (s *Server) handleCreate(c *gin.Context) {
	spec, gw, ok := s.gateway(c)
	if !ok {
		return
	}
	fields, ok := s.fields(c, spec)
	if !ok {
		return
	}
	rec, err := gw.Create(c.Request.Context(), fields)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondRecord(c, http.StatusCreated, spec, rec, noun(spec)+" created successfully")
}

func (s *Server) handleUpdate(c *gin.Context) {
	spec, gw, ok := s.gateway(c)
	if !ok {
		return
	}
	fields, ok := s.fields(c, spec)
	if !ok {
		return
	}
	rec, err := gw.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondRecord(c, http.StatusOK, spec, rec, noun(spec)+" updated successfully")
}

func (s *Server) handleDelete(c *gin.Context) {
	spec, gw, ok := s.gateway(c)
	if !ok {
		return
	}
	if err := gw.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, http.StatusOK, rest.Envelope{Message: noun(spec) + " deleted successfully"})
}

func (s *Server) gateway(c *gin.Context) (types.CollectionSpec, types.Gateway, bool) {
	spec, err := types.LookupCollection(c.Param("collection"))
	if err != nil {
		s.respondError(c, http.StatusNotFound, fmt.Sprintf("Unknown collection %q", c.Param("collection")))
		return spec, nil, false
	}
	gw, err := s.backend.Gateway(spec.Name)
	if err != nil {
		s.fail(c, err)
		return spec, nil, false
	}
	return spec, gw, true
}

// fields decodes the request body as a record and validates it. Identifier
// keys in the body are ignored; the path names the record.
func (s *Server) fields(c *gin.Context, spec types.CollectionSpec) (types.Fields, bool) {
	var body map[string]any
	if err := s.decode(c, &body); err != nil || body == nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	fields := types.Fields(body).Without("id", "_id")
	if err := controller.Validate(spec, fields, false); err != nil {
		s.fail(c, err)
		return nil, false
	}
	return fields, true
}

func (s *Server) decode(c *gin.Context, v any) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) fail(c *gin.Context, err error) {
	var nf *types.NotFoundError
	var ve *types.ValidationError
	switch {
	case errors.As(err, &nf):
		s.respondError(c, http.StatusNotFound, nf.Error())
	case errors.As(err, &ve):
		s.respondError(c, http.StatusBadRequest, validationMessage(ve))
	case errors.Is(err, types.ErrInvalidData):
		s.respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrCollectionNotFound):
		s.respondError(c, http.StatusNotFound, err.Error())
	default:
		s.logger.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
		s.respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// noun is the capitalized singular name used in success messages.
func noun(spec types.CollectionSpec) string {
	return cases.Title(language.English, cases.NoLower).String(spec.Singular)
}

// validationMessage returns the lone field message, or the combined text.
func validationMessage(ve *types.ValidationError) string {
	if len(ve.Fields) == 1 {
		for _, msg := range ve.Fields {
			return msg
		}
	}
	return ve.Error()
}

func (s *Server) respondRecord(c *gin.Context, status int, spec types.CollectionSpec, rec types.Record, message string) {
	s.respond(c, status, rest.RecordEnvelope{
		Data:    map[string]types.Record{spec.Singular: rec},
		Message: message,
	})
}

func (s *Server) respondError(c *gin.Context, status int, message string) {
	s.respond(c, status, rest.Envelope{Message: message})
}

// respond encodes with go-json instead of gin's default encoder.
func (s *Server) respond(c *gin.Context, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorw("encoding response", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", payload)
}
