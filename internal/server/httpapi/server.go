// Package httpapi exposes the authentication service over HTTP. Routing
// uses gin; guards are implemented as middleware that verify tokens and
// attach the decoded identity to the request context before handlers
// run.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dvmarques/sessionauth/internal/logging"
	"github.com/dvmarques/sessionauth/internal/server/models"
	"github.com/dvmarques/sessionauth/internal/server/services"
)

// AuthService is the service surface the handlers consume.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*services.TokenPair, error)
	SignIn(ctx context.Context, email, password string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID, refreshToken string) (*services.TokenPair, error)
}

// Server is the HTTP front of the auth service.
type Server struct {
	address       string
	logger        logging.Logger
	auth          AuthService
	accessSecret  []byte
	refreshSecret []byte
}

// NewServer constructs the HTTP server. The access and refresh secrets
// are only used to verify inbound tokens; minting happens in the
// service.
func NewServer(address string, l logging.Logger, svc AuthService, accessSecret, refreshSecret string) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		auth:          svc,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

// Router builds the route table. Guard middleware is declared per route
// so the required credentials are visible where the route is.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", s.signUp)
		authGroup.POST("/signin", s.signIn)
		authGroup.POST("/logout", AccessTokenMiddleware(s.accessSecret), s.logout)
		authGroup.POST("/refresh", RefreshTokenMiddleware(s.refreshSecret), s.refresh)
	}

	usersGroup := r.Group("/users", AccessTokenMiddleware(s.accessSecret))
	{
		usersGroup.GET("/me", s.me)
		usersGroup.GET("/admin/metrics", RequireRoles(models.RoleAdmin), s.adminMetrics)
	}

	return r
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails. Shutdown drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
