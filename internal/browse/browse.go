package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/metrics"
	"github.com/AbdulWasayUl/country-explorer/internal/workpool"
	"github.com/AbdulWasayUl/country-explorer/models"
	"github.com/AbdulWasayUl/country-explorer/services/country"
	"github.com/rs/xid"
)

const ItemsPerPage = 9

type FailurePolicy int

const (
	// FailureAsEmpty shows a failed request as an empty result on page 1.
	FailureAsEmpty FailurePolicy = iota
	// FailureKeepPrevious leaves the list and selections as they were.
	FailureKeepPrevious
)

func ParsePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return FailureAsEmpty, nil
	case "keep":
		return FailureKeepPrevious, nil
	}
	return FailureAsEmpty, fmt.Errorf("unknown failure policy %q", s)
}

type Gateway interface {
	Fetch(ctx context.Context, q country.Query) ([]byte, error)
	ParseData(data []byte) (interface{}, error)
}

// FavoriteSet hands out a point-in-time membership test.
type FavoriteSet interface {
	Contains() func(name string) bool
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DataRequest) error
}

// FilterSelection holds the active filters. Empty means no filter on that axis.
type FilterSelection struct {
	Region     string `json:"region,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Language   string `json:"language,omitempty"`
	SearchText string `json:"searchText,omitempty"`
}

type Option func(*Machine)

func WithDispatcher(d Dispatcher) Option {
	return func(m *Machine) { m.dispatcher = d }
}

func WithPolicy(p FailurePolicy) Option {
	return func(m *Machine) { m.policy = p }
}

// Machine owns what the user currently sees. All writes go through its
// operations; request results are applied only for the latest ticket.
type Machine struct {
	gateway    Gateway
	favorites  FavoriteSet
	dispatcher Dispatcher
	policy     FailurePolicy

	mu            sync.Mutex
	list          []country.Country
	selection     FilterSelection
	favoritesOnly bool
	page          int
	lastErr       error
	loading       bool
	latest        uint64
}

func New(gateway Gateway, favorites FavoriteSet, opts ...Option) *Machine {
	m := &Machine{
		gateway:    gateway,
		favorites:  favorites,
		dispatcher: workpool.Inline{Timeout: 15 * time.Second},
		page:       1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// pending describes the state a request installs when it succeeds.
type pending struct {
	op             string
	query          country.Query
	selection      FilterSelection
	keepText       bool
	clearFavorites bool
}

func (m *Machine) LoadAll(ctx context.Context) error {
	return m.issue(ctx, pending{
		op:       "load_all",
		query:    country.Query{Kind: country.QueryAll},
		keepText: true,
	})
}

// Search is a no-op for blank text.
func (m *Machine) Search(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return m.issue(ctx, pending{
		op:             "search",
		query:          country.Query{Kind: country.QueryName, Value: text},
		selection:      FilterSelection{SearchText: text},
		clearFavorites: true,
	})
}

// FilterByRegion keeps the search text. The sentinel loads everything.
func (m *Machine) FilterByRegion(ctx context.Context, region string) error {
	region = strings.TrimSpace(region)
	if region == "" || region == RegionSentinel {
		return m.LoadAll(ctx)
	}
	return m.issue(ctx, pending{
		op:             "region",
		query:          country.Query{Kind: country.QueryRegion, Value: region},
		selection:      FilterSelection{Region: region},
		keepText:       true,
		clearFavorites: true,
	})
}

// FilterByCurrency resolves name against the loaded list and clears the
// region and language axes. Unknown names are ignored; the sentinel loads
// everything.
func (m *Machine) FilterByCurrency(ctx context.Context, name string) error {
	if name == "" || name == CurrencySentinel {
		return m.LoadAll(ctx)
	}
	m.mu.Lock()
	code, ok := CurrencyIndex(m.list).Code(name)
	m.mu.Unlock()
	if !ok {
		logger.Debug("[browse] currency %q is not in the loaded list", name)
		return nil
	}

	return m.issue(ctx, pending{
		op:        "currency",
		query:     country.Query{Kind: country.QueryCurrency, Value: code},
		selection: FilterSelection{Currency: name},
		keepText:  true,
	})
}

// FilterByLanguage mirrors FilterByCurrency and clears region and currency.
func (m *Machine) FilterByLanguage(ctx context.Context, name string) error {
	if name == "" || name == LanguageSentinel {
		return m.LoadAll(ctx)
	}
	m.mu.Lock()
	code, ok := LanguageIndex(m.list).Code(name)
	m.mu.Unlock()
	if !ok {
		logger.Debug("[browse] language %q is not in the loaded list", name)
		return nil
	}

	return m.issue(ctx, pending{
		op:        "language",
		query:     country.Query{Kind: country.QueryLanguage, Value: code},
		selection: FilterSelection{Language: name},
		keepText:  true,
	})
}

// ResetFilters loads everything and clears the search text and favorites-only.
func (m *Machine) ResetFilters(ctx context.Context) error {
	return m.issue(ctx, pending{
		op:             "reset",
		query:          country.Query{Kind: country.QueryAll},
		clearFavorites: true,
	})
}

func (m *Machine) ToggleFavoritesOnly() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favoritesOnly = !m.favoritesOnly
	m.page = 1
	metrics.RecordBrowseOperation("favorites_only", "applied")
	return m.favoritesOnly
}

// SetSearchText records typed text without issuing a request.
func (m *Machine) SetSearchText(text string) {
	m.mu.Lock()
	m.selection.SearchText = text
	m.mu.Unlock()
}

// SetPage clamps n into [1, totalPages] and returns the page set.
func (m *Machine) SetPage(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPage(n)
}

func (m *Machine) NextPage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPage(m.page + 1)
}

func (m *Machine) PrevPage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPage(m.page - 1)
}

func (m *Machine) setPage(n int) int {
	m.page = ClampPage(n, TotalPages(len(m.visible())))
	metrics.RecordBrowseOperation("page", "applied")
	return m.page
}

func (m *Machine) issue(ctx context.Context, p pending) error {
	m.mu.Lock()
	m.latest++
	ticket := m.latest
	m.loading = true
	m.mu.Unlock()

	req := models.DataRequest{
		ID:      xid.New().String(),
		Service: "browse." + p.op,
		Ticket:  ticket,
		FetchFunc: func(ctx context.Context, _ string) ([]byte, error) {
			return m.gateway.Fetch(ctx, p.query)
		},
		ParseFunc: m.gateway.ParseData,
		StoreFunc: func(_ context.Context, data interface{}) error {
			list, _ := data.([]country.Country)
			m.settle(ticket, p, list, nil)
			return nil
		},
		FailFunc: func(_ context.Context, err error) {
			m.settle(ticket, p, nil, err)
		},
	}

	logger.Debug("[browse] %s %s issued (ticket %d, request %s)", p.op, p.query, ticket, req.ID)
	err := m.dispatcher.Dispatch(ctx, req)
	if err == nil || errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	// Settling twice is harmless; this covers dispatch failures that never
	// reached FailFunc.
	m.settle(ticket, p, nil, err)
	return err
}

// settle applies a finished request if its ticket is still the latest.
func (m *Machine) settle(ticket uint64, p pending, list []country.Country, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ticket != m.latest {
		logger.Debug("[browse] %s result for ticket %d dropped, latest is %d", p.op, ticket, m.latest)
		metrics.RecordBrowseOperation(p.op, "stale")
		return
	}
	if !m.loading {
		return
	}
	m.loading = false

	// Zero matches come back as 404 upstream.
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		m.lastErr = err
		logger.Error("[browse] %s %s failed: %v", p.op, p.query, err)
		metrics.RecordBrowseOperation(p.op, "failed")
		if m.policy == FailureKeepPrevious {
			return
		}
		list = nil
	} else {
		m.lastErr = nil
		metrics.RecordBrowseOperation(p.op, "applied")
	}

	sel := p.selection
	if p.keepText {
		sel.SearchText = m.selection.SearchText
	}
	m.list = list
	m.selection = sel
	if p.clearFavorites {
		m.favoritesOnly = false
	}
	m.page = 1
}

func (m *Machine) visible() []country.Country {
	if !m.favoritesOnly || m.favorites == nil {
		return Visible(m.list, m.favoritesOnly, nil)
	}
	return Visible(m.list, true, m.favorites.Contains())
}

// View is a consistent snapshot of the machine's state.
type View struct {
	Items           []country.Country `json:"items"`
	Page            int               `json:"page"`
	TotalPages      int               `json:"totalPages"`
	VisibleCount    int               `json:"visibleCount"`
	Selection       FilterSelection   `json:"selection"`
	FavoritesOnly   bool              `json:"favoritesOnly"`
	Loading         bool              `json:"loading"`
	Error           string            `json:"error,omitempty"`
	ErrorKind       string            `json:"errorKind,omitempty"`
	RegionOptions   []string          `json:"regionOptions"`
	CurrencyOptions []string          `json:"currencyOptions"`
	LanguageOptions []string          `json:"languageOptions"`
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	visible := m.visible()
	total := TotalPages(len(visible))
	page := ClampPage(m.page, total)

	v := View{
		Items:           PageItems(visible, page),
		Page:            page,
		TotalPages:      total,
		VisibleCount:    len(visible),
		Selection:       m.selection,
		FavoritesOnly:   m.favoritesOnly,
		Loading:         m.loading,
		RegionOptions:   RegionOptions(),
		CurrencyOptions: CurrencyIndex(m.list).Options,
		LanguageOptions: LanguageIndex(m.list).Options,
	}
	if m.lastErr != nil {
		v.Error = m.lastErr.Error()
		v.ErrorKind = apperror.Kind(m.lastErr)
	}
	return v
}

// VisibleList returns the full list after the favorites-only restriction.
func (m *Machine) VisibleList() []country.Country {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]country.Country(nil), m.visible()...)
}

func (m *Machine) Page() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
