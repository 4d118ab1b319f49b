package detail

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/metrics"
	"github.com/AbdulWasayUl/country-explorer/services/country"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

type Gateway interface {
	FetchByFullName(ctx context.Context, name string) (country.Country, error)
}

// State is what the detail page renders. Country is set only when loaded.
type State struct {
	Status    Status           `json:"status"`
	Name      string           `json:"name,omitempty"`
	Country   *country.Country `json:"country,omitempty"`
	MapURL    string           `json:"mapUrl,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
}

// Loader fetches one country at a time, independent of browsing.
type Loader struct {
	gateway Gateway

	mu     sync.Mutex
	state  State
	latest uint64
}

func New(gateway Gateway) *Loader {
	return &Loader{gateway: gateway, state: State{Status: StatusIdle}}
}

// MapURL links to a map search for the country.
func MapURL(name string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(name)
}

// Load fetches name and returns the resulting state. A newer Load wins over
// an older one still in flight.
func (l *Loader) Load(ctx context.Context, name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return l.State(), apperror.Validation("detail.load", "country name is empty")
	}

	l.mu.Lock()
	l.latest++
	ticket := l.latest
	l.state = State{Status: StatusLoading, Name: name}
	l.mu.Unlock()

	c, err := l.gateway.FetchByFullName(ctx, name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if ticket != l.latest {
		metrics.RecordBrowseOperation("detail", "stale")
		return l.state, err
	}

	if err != nil {
		logger.Error("[detail] loading %s failed: %v", name, err)
		metrics.RecordBrowseOperation("detail", "failed")
		l.state = State{
			Status:    StatusError,
			Name:      name,
			Error:     err.Error(),
			ErrorKind: apperror.Kind(err),
		}
		return l.state, err
	}

	metrics.RecordBrowseOperation("detail", "applied")
	l.state = State{
		Status:  StatusLoaded,
		Name:    name,
		Country: &c,
		MapURL:  MapURL(c.CommonName()),
	}
	return l.state, nil
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
