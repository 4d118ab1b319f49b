package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/browse"
	"github.com/AbdulWasayUl/country-explorer/internal/detail"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/preferences"
	"github.com/AbdulWasayUl/country-explorer/services/auth"
	"github.com/go-chi/chi/v5"
)

type homePage struct {
	User      *auth.User        `json:"user,omitempty"`
	Theme     preferences.Theme `json:"theme"`
	Favorites []string          `json:"favorites"`
	Browse    browse.View       `json:"browse"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, homePage{
		User:      s.session.Snapshot().User,
		Theme:     s.preferences.Theme(r.Context()),
		Favorites: s.favorites.List(),
		Browse:    s.browse.View(),
	})
}

func (s *Server) handleAuthPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.session.IsAuthenticated() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"page":  page,
			"theme": string(s.preferences.Theme(r.Context())),
		})
	}
}

// Browse

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.browse.View())
}

// writeView reports a browse operation. Request failures are already part
// of the view, so they only get logged here.
func (s *Server) writeView(w http.ResponseWriter, op string, err error) {
	if err != nil {
		logger.Debug("[http] browse %s: %v", op, err)
	}
	writeJSON(w, http.StatusOK, s.browse.View())
}

func (s *Server) handleLoadAll(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, "all", s.browse.LoadAll(r.Context()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, "reset", s.browse.ResetFilters(r.Context()))
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, "search", s.browse.Search(r.Context(), req.Text))
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.browse.SetSearchText(req.Text)
	writeJSON(w, http.StatusOK, s.browse.View())
}

type filterRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, "region", s.browse.FilterByRegion(r.Context(), req.Value))
}

func (s *Server) handleCurrency(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, "currency", s.browse.FilterByCurrency(r.Context(), req.Value))
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.writeView(w, "language", s.browse.FilterByLanguage(r.Context(), req.Value))
}

func (s *Server) handleFavoritesOnly(w http.ResponseWriter, r *http.Request) {
	s.browse.ToggleFavoritesOnly()
	writeJSON(w, http.StatusOK, s.browse.View())
}

// pageRequest sets an absolute page, or moves by "next" / "prev".
type pageRequest struct {
	Page      int    `json:"page"`
	Direction string `json:"direction"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	switch strings.ToLower(req.Direction) {
	case "next":
		s.browse.NextPage()
	case "prev":
		s.browse.PrevPage()
	case "":
		s.browse.SetPage(req.Page)
	default:
		writeError(w, apperror.Validation("server.page", "direction must be next or prev"))
		return
	}
	writeJSON(w, http.StatusOK, s.browse.View())
}

// Favorites

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"favorites": s.favorites.List()})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, apperror.Validation("server.favorites", "invalid country name"))
		return
	}

	on, err := s.favorites.Toggle(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "favorite": on})
}

// Session

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := s.session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.session.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.session.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Theme

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeRequest{Theme: string(s.preferences.Theme(r.Context()))})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	theme, err := preferences.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.preferences.SetTheme(r.Context(), theme); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeRequest{Theme: string(theme)})
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.preferences.ToggleTheme(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeRequest{Theme: string(theme)})
}

// Detail

type detailPage struct {
	detail.State
	Favorite bool `json:"favorite"`
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "countryName"))
	if err != nil {
		writeError(w, apperror.Validation("server.detail", "invalid country name"))
		return
	}

	state, err := s.detail.Load(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detailPage{
		State:    state,
		Favorite: s.favorites.Has(state.Name),
	})
}
