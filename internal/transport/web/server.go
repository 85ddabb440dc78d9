package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/EgorLis/my-books/internal/books"
	"github.com/EgorLis/my-books/internal/config"
	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	authv1 "github.com/EgorLis/my-books/internal/transport/web/v1/auth"
	bookv1 "github.com/EgorLis/my-books/internal/transport/web/v1/book"
	"github.com/EgorLis/my-books/internal/transport/web/v1/health"
)

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *log.Logger, cfg *config.Config, svc *books.Service,
	rep Repos, auth AuthDeps, storage domain.CoverStorage, cache domain.Cache) *Server {

	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	booksLog := log.New(logger.Writer(), logger.Prefix()+"[books] ", logger.Flags())
	authLog := log.New(logger.Writer(), logger.Prefix()+"[auth] ", logger.Flags())

	healthHandler := &health.Handler{Log: healthLog, DB: rep.Users, Cache: cache, Storage: storage}
	bookHandler := &bookv1.Handler{Log: booksLog, Svc: svc, History: rep.History, Storage: storage}
	registerHandler := &authv1.HandlerRegister{Log: authLog, Users: rep.Users, Hasher: auth.Hasher, Tokens: auth.Tokens}
	loginHandler := &authv1.HandlerLogin{Log: authLog, Users: rep.Users, Hasher: auth.Hasher, Tokens: auth.Tokens}
	logoutHandler := &authv1.HandlerLogout{Log: authLog, Tokens: auth.Tokens, Blacklist: auth.Blacklist}
	meHandler := &authv1.HandlerMe{Log: authLog, Users: rep.Users}

	authMW := mw.AuthDeps{Tokens: auth.Tokens, Blacklist: auth.Blacklist}

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(healthHandler, bookHandler, registerHandler, loginHandler, logoutHandler, meHandler, authMW, logger),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

func (ws *Server) Run() {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ws.log.Fatalf("error: %v", err)
	}
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
	}
	ws.log.Println("exited gracefully")
}
