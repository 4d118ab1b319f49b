package preferences

import (
	"context"
	"fmt"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/store"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", apperror.Validation("preferences.theme", fmt.Sprintf("unknown theme %q", s))
}

type Preferences struct {
	state store.Store
}

func New(state store.Store) *Preferences {
	return &Preferences{state: state}
}

// Theme returns the stored theme; missing or unreadable values mean light.
func (p *Preferences) Theme(ctx context.Context) Theme {
	raw, ok, err := p.state.Get(ctx, store.KeyTheme)
	if err != nil {
		logger.Error("[preferences] reading theme: %v", err)
		return ThemeLight
	}
	if !ok {
		return ThemeLight
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return ThemeLight
	}
	return t
}

func (p *Preferences) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return p.state.Set(ctx, store.KeyTheme, string(t))
}

func (p *Preferences) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if p.Theme(ctx) == ThemeDark {
		next = ThemeLight
	}
	return next, p.SetTheme(ctx, next)
}
