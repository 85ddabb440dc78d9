package web

import (
	"log"
	"net/http"

	_ "github.com/EgorLis/my-books/internal/docs"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	authv1 "github.com/EgorLis/my-books/internal/transport/web/v1/auth"
	bookv1 "github.com/EgorLis/my-books/internal/transport/web/v1/book"
	"github.com/EgorLis/my-books/internal/transport/web/v1/health"
	httpSwagger "github.com/swaggo/http-swagger"
)

func newRouter(hh *health.Handler, bh *bookv1.Handler,
	rh *authv1.HandlerRegister, lh *authv1.HandlerLogin,
	oh *authv1.HandlerLogout, mh *authv1.HandlerMe,
	authMW mw.AuthDeps, logger *log.Logger) http.Handler {

	mux := http.NewServeMux()

	required := func(h http.HandlerFunc) http.Handler { return mw.RequireAuth(authMW, h) }
	optional := func(h http.HandlerFunc) http.Handler { return mw.OptionalAuth(authMW, h) }

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)

	// auth
	mux.HandleFunc("POST /api/register", rh.Register)
	mux.HandleFunc("POST /api/login", lh.Login)
	mux.HandleFunc("DELETE /api/logout", oh.Logout)
	mux.Handle("GET /api/me", required(mh.Me))

	// каталог; suggestions регистрируем до {id} — точный путь выигрывает
	mux.HandleFunc("GET /api/books/suggestions", bh.Suggest)
	mux.HandleFunc("GET /api/books", bh.List)
	mux.Handle("GET /api/books/{id}", optional(bh.GetOne))
	mux.Handle("POST /api/books", required(limitBody(32<<20, bh.Create))) // 32MB лимит на обложку
	mux.Handle("PUT /api/books/{id}", required(limitBody(32<<20, bh.Update)))
	mux.Handle("DELETE /api/books/{id}", required(bh.Delete))
	mux.Handle("POST /api/books/{id}/like", required(bh.Like))
	mux.Handle("GET /api/view-history", required(bh.ViewHistory))

	// swagger
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// 🔗 middleware
	return mw.WithRequestID(mw.Logging(logger)(mux))
}

func limitBody(n int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	}
}
