package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/api"
	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/config"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/models"
)

const (
	serviceName    = "restcountries"
	defaultBaseURL = "https://restcountries.com/v3.1"

	// /all rejects requests without a field list and caps it at ten fields.
	allFields = "name,flags,population,region,subregion,capital,languages,currencies,area,borders"
)

type QueryKind string

const (
	QueryAll      QueryKind = "all"
	QueryName     QueryKind = "name"
	QueryFullName QueryKind = "fullname"
	QueryRegion   QueryKind = "region"
	QueryCurrency QueryKind = "currency"
	QueryLanguage QueryKind = "lang"
)

// Query identifies one gateway lookup.
type Query struct {
	Kind  QueryKind
	Value string
}

func (q Query) String() string {
	if q.Kind == QueryAll {
		return string(q.Kind)
	}
	return string(q.Kind) + "/" + q.Value
}

type Service struct {
	Config  *config.Config
	Client  *api.Client
	BaseURL string
}

func NewService(cfg *config.Config) *Service {
	rlSettings := models.RateLimitSettings{
		MaxRequests: 20,
		PerDuration: time.Second,
	}
	opts := []api.Option{api.WithService(serviceName)}
	baseURL := defaultBaseURL
	if cfg != nil {
		if cfg.RestCountriesAPIBaseURL != "" {
			baseURL = cfg.RestCountriesAPIBaseURL
		}
		if cfg.RequestTimeout > 0 {
			opts = append(opts, api.WithTimeout(cfg.RequestTimeout))
		}
	}

	return &Service{
		Config:  cfg,
		Client:  api.NewClient(rlSettings, opts...),
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// URL builds the request URL for q. Values are path-escaped.
func (s *Service) URL(q Query) string {
	value := url.PathEscape(q.Value)
	switch q.Kind {
	case QueryAll:
		return fmt.Sprintf("%s/all?fields=%s", s.BaseURL, allFields)
	case QueryFullName:
		return fmt.Sprintf("%s/name/%s?fullText=true", s.BaseURL, value)
	default:
		return fmt.Sprintf("%s/%s/%s", s.BaseURL, q.Kind, value)
	}
}

// Fetch returns the raw payload for q with errors classified.
func (s *Service) Fetch(ctx context.Context, q Query) ([]byte, error) {
	if q.Kind != QueryAll && strings.TrimSpace(q.Value) == "" {
		return nil, apperror.Validation("country."+string(q.Kind), "query value is empty")
	}
	data, err := s.Client.Do(ctx, s.URL(q), nil)
	if err != nil {
		logger.Debug("[%s] %s failed: %v", serviceName, q, err)
		return nil, apperror.Classify("country."+string(q.Kind), err)
	}
	return data, nil
}

// ParseData decodes a list payload; the result is a []Country.
func (s *Service) ParseData(data []byte) (interface{}, error) {
	return ParseList(data)
}

// ParseList decodes a JSON array of country records. An empty array is a
// valid empty result; records without a common name are dropped.
func ParseList(data []byte) ([]Country, error) {
	var resp []Country
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperror.Malformed("country.parse", fmt.Errorf("failed to parse country data: %w", err))
	}
	// "[]" decodes to an empty slice, only null leaves it nil.
	if resp == nil {
		return nil, apperror.Malformed("country.parse", errors.New("expected a list, got null"))
	}

	out := make([]Country, 0, len(resp))
	for _, c := range resp {
		if c.Name.Common == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) query(ctx context.Context, q Query) ([]Country, error) {
	data, err := s.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return ParseList(data)
}

func (s *Service) FetchAll(ctx context.Context) ([]Country, error) {
	return s.query(ctx, Query{Kind: QueryAll})
}

func (s *Service) SearchByName(ctx context.Context, name string) ([]Country, error) {
	return s.query(ctx, Query{Kind: QueryName, Value: name})
}

func (s *Service) FilterByRegion(ctx context.Context, region string) ([]Country, error) {
	return s.query(ctx, Query{Kind: QueryRegion, Value: region})
}

func (s *Service) FilterByCurrency(ctx context.Context, code string) ([]Country, error) {
	return s.query(ctx, Query{Kind: QueryCurrency, Value: code})
}

func (s *Service) FilterByLanguage(ctx context.Context, code string) ([]Country, error) {
	return s.query(ctx, Query{Kind: QueryLanguage, Value: code})
}

// FetchByFullName looks up one country by its exact name. Upstream answers
// with a list; an empty list is reported as not found.
func (s *Service) FetchByFullName(ctx context.Context, name string) (Country, error) {
	list, err := s.query(ctx, Query{Kind: QueryFullName, Value: name})
	if err != nil {
		return Country{}, err
	}
	if len(list) == 0 {
		return Country{}, apperror.NotFound("country.fullname", name)
	}
	return list[0], nil
}
