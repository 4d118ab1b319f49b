package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/browse"
	"github.com/AbdulWasayUl/country-explorer/internal/detail"
	"github.com/AbdulWasayUl/country-explorer/internal/favorites"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/metrics"
	"github.com/AbdulWasayUl/country-explorer/internal/preferences"
	"github.com/AbdulWasayUl/country-explorer/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 30 * time.Second

type Deps struct {
	Session     *session.Session
	Favorites   *favorites.Store
	Preferences *preferences.Preferences
	Browse      *browse.Machine
	Detail      *detail.Loader
}

type Server struct {
	router *chi.Mux
	addr   string

	session     *session.Session
	favorites   *favorites.Store
	preferences *preferences.Preferences
	browse      *browse.Machine
	detail      *detail.Loader
}

func New(addr string, deps Deps) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		addr:        addr,
		session:     deps.Session,
		favorites:   deps.Favorites,
		preferences: deps.Preferences,
		browse:      deps.Browse,
		detail:      deps.Detail,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/login", s.handleAuthPage("login"))
	s.router.Get("/register", s.handleAuthPage("register"))
	s.router.Post("/login", s.handleLogin)
	s.router.Post("/register", s.handleRegister)
	s.router.Post("/logout", s.handleLogout)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/theme", s.handleTheme)
		r.Put("/theme", s.handleSetTheme)
		r.Post("/theme/toggle", s.handleToggleTheme)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/favorites", s.handleFavorites)
			r.Post("/favorites/{name}", s.handleToggleFavorite)

			r.Route("/browse", func(r chi.Router) {
				r.Get("/", s.handleView)
				r.Post("/all", s.handleLoadAll)
				r.Post("/search", s.handleSearch)
				r.Post("/text", s.handleSearchText)
				r.Post("/region", s.handleRegion)
				r.Post("/currency", s.handleCurrency)
				r.Post("/language", s.handleLanguage)
				r.Post("/favorites-only", s.handleFavoritesOnly)
				r.Post("/page", s.handlePage)
				r.Post("/reset", s.handleReset)
			})
		})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleHome)
		r.Get("/{countryName}", s.handleDetail)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on http://%s", s.addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("HTTP server stopped")
	}
	return nil
}
