package browse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/workpool"
	"github.com/AbdulWasayUl/country-explorer/models"
	"github.com/AbdulWasayUl/country-explorer/services/country"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers queries from a table keyed by Query.String().
type fakeGateway struct {
	mu      sync.Mutex
	results map[string][]country.Country
	errs    map[string]error
	calls   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results: make(map[string][]country.Country),
		errs:    make(map[string]error),
	}
}

func (g *fakeGateway) on(q country.Query, list []country.Country) *fakeGateway {
	g.results[q.String()] = list
	return g
}

func (g *fakeGateway) fail(q country.Query, err error) *fakeGateway {
	g.errs[q.String()] = err
	return g
}

func (g *fakeGateway) Fetch(_ context.Context, q country.Query) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, q.String())
	if err, ok := g.errs[q.String()]; ok {
		return nil, err
	}
	list, ok := g.results[q.String()]
	if !ok {
		return nil, apperror.NotFound("country."+string(q.Kind), q.Value)
	}
	return json.Marshal(list)
}

func (g *fakeGateway) ParseData(data []byte) (interface{}, error) {
	return country.ParseList(data)
}

type favSet map[string]bool

func (f favSet) Contains() func(string) bool {
	return func(name string) bool { return f[name] }
}

func mk(name, region string, currencies map[string]string, languages map[string]string) country.Country {
	c := country.Country{Region: region, Languages: languages}
	c.Name.Common = name
	if len(currencies) > 0 {
		c.Currencies = make(map[string]country.Currency)
		for code, n := range currencies {
			c.Currencies[code] = country.Currency{Name: n}
		}
	}
	return c
}

func numbered(n int) []country.Country {
	out := make([]country.Country, n)
	for i := range out {
		out[i] = mk(fmt.Sprintf("Country %02d", i+1), "Europe", nil, nil)
	}
	return out
}

var (
	all      = country.Query{Kind: country.QueryAll}
	france   = mk("France", "Europe", map[string]string{"EUR": "Euro"}, map[string]string{"fra": "French"})
	germany  = mk("Germany", "Europe", map[string]string{"EUR": "Euro"}, map[string]string{"deu": "German"})
	japan    = mk("Japan", "Asia", map[string]string{"JPY": "Japanese yen"}, map[string]string{"jpn": "Japanese"})
	senegal  = mk("Senegal", "Africa", map[string]string{"XOF": "West African CFA franc"}, map[string]string{"fra": "French"})
	starting = []country.Country{france, germany, japan, senegal}
)

func names(list []country.Country) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.CommonName())
	}
	return out
}

func loaded(t *testing.T, g *fakeGateway, favs FavoriteSet, opts ...Option) *Machine {
	t.Helper()
	m := New(g, favs, opts...)
	require.NoError(t, m.LoadAll(context.Background()))
	return m
}

func TestLoadAll(t *testing.T) {
	g := newFakeGateway().on(all, starting)
	m := loaded(t, g, nil)

	v := m.View()
	assert.Equal(t, []string{"France", "Germany", "Japan", "Senegal"}, names(v.Items))
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, FilterSelection{}, v.Selection)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Error)
}

func TestPagesReconstructVisibleList(t *testing.T) {
	for _, n := range []int{1, 8, 9, 10, 20, 27, 28} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			g := newFakeGateway().on(all, numbered(n))
			m := loaded(t, g, nil)

			var joined []country.Country
			total := m.View().TotalPages
			for p := 1; p <= total; p++ {
				require.Equal(t, p, m.SetPage(p))
				items := m.View().Items
				assert.LessOrEqual(t, len(items), ItemsPerPage)
				joined = append(joined, items...)
			}
			assert.Equal(t, names(m.VisibleList()), names(joined))
		})
	}
}

func TestSetPageClamps(t *testing.T) {
	g := newFakeGateway().on(all, numbered(20))
	m := loaded(t, g, nil)

	assert.Equal(t, 3, m.View().TotalPages)
	assert.Equal(t, 3, m.SetPage(5))
	assert.Equal(t, 1, m.SetPage(-1))
	assert.Equal(t, 1, m.SetPage(0))
	assert.Equal(t, 2, m.NextPage())
	assert.Equal(t, 3, m.NextPage())
	assert.Equal(t, 3, m.NextPage())
	assert.Equal(t, 2, m.PrevPage())
	assert.Len(t, m.View().Items, 9)
	assert.Equal(t, 3, m.SetPage(3))
	assert.Len(t, m.View().Items, 2)
}

func TestSetPageOnEmptyList(t *testing.T) {
	m := loaded(t, newFakeGateway().on(all, nil), nil)
	assert.Equal(t, 1, m.SetPage(4))
	v := m.View()
	assert.Equal(t, 0, v.TotalPages)
	assert.NotNil(t, v.Items)
	assert.Empty(t, v.Items)
}

func TestSearch(t *testing.T) {
	ger := country.Query{Kind: country.QueryName, Value: "Ger"}
	g := newFakeGateway().on(all, starting).on(ger, []country.Country{germany})
	favs := favSet{"Germany": true}
	m := loaded(t, g, favs)

	m.ToggleFavoritesOnly()
	m.SetPage(1)
	require.NoError(t, m.Search(context.Background(), "  Ger "))

	v := m.View()
	assert.Equal(t, []string{"Germany"}, names(v.Items))
	assert.Equal(t, FilterSelection{SearchText: "Ger"}, v.Selection)
	assert.False(t, v.FavoritesOnly)
	assert.Equal(t, 1, v.Page)
}

func TestSearchBlankIsNoop(t *testing.T) {
	g := newFakeGateway().on(all, starting)
	m := loaded(t, g, nil)

	require.NoError(t, m.Search(context.Background(), "   "))
	assert.Equal(t, []string{"all"}, g.calls)
	assert.Len(t, m.View().Items, 4)
}

func TestSearchFailureYieldsEmptyPageOne(t *testing.T) {
	ger := country.Query{Kind: country.QueryName, Value: "Ger"}
	g := newFakeGateway().on(all, numbered(20)).
		fail(ger, apperror.Network("country.name", errors.New("connection refused")))
	m := loaded(t, g, nil)
	m.SetPage(3)

	assert.NotPanics(t, func() {
		err := m.Search(context.Background(), "Ger")
		assert.ErrorIs(t, err, apperror.ErrNetwork)
	})

	v := m.View()
	assert.Empty(t, m.VisibleList())
	assert.Empty(t, v.Items)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, "network_failure", v.ErrorKind)
	assert.ErrorIs(t, m.LastError(), apperror.ErrNetwork)
}

func TestFailureKeepPrevious(t *testing.T) {
	asia := country.Query{Kind: country.QueryRegion, Value: "Asia"}
	g := newFakeGateway().on(all, numbered(20)).
		fail(asia, apperror.Malformed("country.parse", errors.New("bad json")))
	m := loaded(t, g, nil, WithPolicy(FailureKeepPrevious))
	m.SetPage(2)

	assert.Error(t, m.FilterByRegion(context.Background(), "Asia"))

	v := m.View()
	assert.Equal(t, 20, v.VisibleCount)
	assert.Equal(t, 2, v.Page)
	assert.Equal(t, FilterSelection{}, v.Selection, "selection is not applied without its list")
	assert.Equal(t, "malformed_response", v.ErrorKind)
}

func TestFailedSearchKeepsPreviousText(t *testing.T) {
	ger := country.Query{Kind: country.QueryName, Value: "Ger"}
	g := newFakeGateway().on(all, starting).
		fail(ger, apperror.Network("country.name", errors.New("connection reset")))
	m := loaded(t, g, nil, WithPolicy(FailureKeepPrevious))
	m.SetSearchText("Fra")

	assert.ErrorIs(t, m.Search(context.Background(), "Ger"), apperror.ErrNetwork)

	v := m.View()
	assert.Equal(t, 4, v.VisibleCount)
	assert.Equal(t, FilterSelection{SearchText: "Fra"}, v.Selection)
	assert.Equal(t, "network_failure", v.ErrorKind)
}

func TestNotFoundIsAnEmptyResult(t *testing.T) {
	g := newFakeGateway().on(all, starting)
	m := loaded(t, g, nil)

	require.NoError(t, m.Search(context.Background(), "Atlantis"))
	v := m.View()
	assert.Empty(t, v.Items)
	assert.Empty(t, v.Error)
	assert.Equal(t, "Atlantis", v.Selection.SearchText)
}

func TestFilterByRegion(t *testing.T) {
	africa := country.Query{Kind: country.QueryRegion, Value: "Africa"}
	g := newFakeGateway().on(all, starting).on(africa, []country.Country{senegal})
	m := loaded(t, g, favSet{})
	ctx := context.Background()

	require.NoError(t, m.FilterByLanguage(ctx, "French"))
	m.SetSearchText("Sen")
	m.ToggleFavoritesOnly()

	require.NoError(t, m.FilterByRegion(ctx, "Africa"))
	v := m.View()
	assert.Equal(t, []string{"Senegal"}, names(v.Items))
	assert.Equal(t, FilterSelection{Region: "Africa", SearchText: "Sen"}, v.Selection)
	assert.False(t, v.FavoritesOnly)

	require.NoError(t, m.FilterByRegion(ctx, RegionSentinel))
	v = m.View()
	assert.Len(t, v.Items, 4)
	assert.Equal(t, FilterSelection{SearchText: "Sen"}, v.Selection)
}

func TestCurrencyAndLanguageClearEachOther(t *testing.T) {
	eur := country.Query{Kind: country.QueryCurrency, Value: "EUR"}
	fra := country.Query{Kind: country.QueryLanguage, Value: "fra"}
	g := newFakeGateway().on(all, starting).
		on(eur, []country.Country{france, germany}).
		on(fra, []country.Country{france, senegal})
	m := loaded(t, g, nil)
	ctx := context.Background()

	require.NoError(t, m.FilterByCurrency(ctx, "Euro"))
	v := m.View()
	assert.Equal(t, []string{"France", "Germany"}, names(v.Items))
	assert.Equal(t, "Euro", v.Selection.Currency)

	require.NoError(t, m.FilterByLanguage(ctx, "French"))
	v = m.View()
	assert.Equal(t, []string{"France", "Senegal"}, names(v.Items))
	assert.Equal(t, "French", v.Selection.Language)
	assert.Empty(t, v.Selection.Currency)

	require.NoError(t, m.FilterByCurrency(ctx, "Euro"))
	v = m.View()
	assert.Equal(t, "Euro", v.Selection.Currency)
	assert.Empty(t, v.Selection.Language)
}

func TestCurrencyAndLanguageClearRegion(t *testing.T) {
	europe := country.Query{Kind: country.QueryRegion, Value: "Europe"}
	eur := country.Query{Kind: country.QueryCurrency, Value: "EUR"}
	fra := country.Query{Kind: country.QueryLanguage, Value: "fra"}
	martinique := mk("Martinique", "Americas", map[string]string{"EUR": "Euro"}, map[string]string{"fra": "French"})
	g := newFakeGateway().on(all, starting).
		on(europe, []country.Country{france, germany}).
		on(eur, []country.Country{france, germany, martinique}).
		on(fra, []country.Country{france, martinique, senegal})
	m := loaded(t, g, nil)
	ctx := context.Background()
	m.SetSearchText("an")

	require.NoError(t, m.FilterByRegion(ctx, "Europe"))
	require.NoError(t, m.FilterByCurrency(ctx, "Euro"))
	v := m.View()
	assert.Equal(t, []string{"France", "Germany", "Martinique"}, names(v.Items))
	assert.Equal(t, FilterSelection{Currency: "Euro", SearchText: "an"}, v.Selection)

	require.NoError(t, m.FilterByRegion(ctx, "Europe"))
	require.NoError(t, m.FilterByLanguage(ctx, "French"))
	v = m.View()
	assert.Equal(t, []string{"France", "Martinique", "Senegal"}, names(v.Items))
	assert.Equal(t, FilterSelection{Language: "French", SearchText: "an"}, v.Selection)
}

func TestUnknownCurrencyIsNoop(t *testing.T) {
	g := newFakeGateway().on(all, starting)
	m := loaded(t, g, nil)

	require.NoError(t, m.FilterByCurrency(context.Background(), "Bitcoin"))
	assert.Equal(t, []string{"all"}, g.calls)
	assert.Empty(t, m.View().Selection.Currency)
}

func TestOptionsFollowTheLoadedList(t *testing.T) {
	asia := country.Query{Kind: country.QueryRegion, Value: "Asia"}
	g := newFakeGateway().on(all, starting).on(asia, []country.Country{japan})
	m := loaded(t, g, nil)

	v := m.View()
	assert.Equal(t, []string{CurrencySentinel, "Euro", "Japanese yen", "West African CFA franc"}, v.CurrencyOptions)
	assert.Equal(t, []string{LanguageSentinel, "French", "German", "Japanese"}, v.LanguageOptions)
	assert.Equal(t, RegionSentinel, v.RegionOptions[0])

	require.NoError(t, m.FilterByRegion(context.Background(), "Asia"))
	v = m.View()
	assert.Equal(t, []string{CurrencySentinel, "Japanese yen"}, v.CurrencyOptions)
	assert.Equal(t, []string{LanguageSentinel, "Japanese"}, v.LanguageOptions)
}

func TestToggleFavoritesOnlyRestoresList(t *testing.T) {
	g := newFakeGateway().on(all, numbered(20))
	favs := favSet{"Country 03": true, "Country 15": true}
	m := loaded(t, g, favs)
	m.SetPage(3)

	before := names(m.VisibleList())

	assert.True(t, m.ToggleFavoritesOnly())
	v := m.View()
	assert.Equal(t, []string{"Country 03", "Country 15"}, names(v.Items))
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 1, v.TotalPages)

	assert.False(t, m.ToggleFavoritesOnly())
	assert.Equal(t, before, names(m.VisibleList()))
	assert.Equal(t, 1, m.Page())
}

func TestResetFilters(t *testing.T) {
	asia := country.Query{Kind: country.QueryRegion, Value: "Asia"}
	g := newFakeGateway().on(all, starting).on(asia, []country.Country{japan})
	m := loaded(t, g, favSet{})
	ctx := context.Background()

	require.NoError(t, m.FilterByRegion(ctx, "Asia"))
	m.SetSearchText("Jap")
	m.ToggleFavoritesOnly()

	require.NoError(t, m.ResetFilters(ctx))
	v := m.View()
	assert.Len(t, v.Items, 4)
	assert.Equal(t, FilterSelection{}, v.Selection)
	assert.False(t, v.FavoritesOnly)
}

// captureDispatcher holds requests so tests control completion order.
type captureDispatcher struct {
	reqs []models.DataRequest
}

func (d *captureDispatcher) Dispatch(_ context.Context, req models.DataRequest) error {
	d.reqs = append(d.reqs, req)
	return nil
}

func TestStaleResponseIsIgnored(t *testing.T) {
	ger := country.Query{Kind: country.QueryName, Value: "Ger"}
	asia := country.Query{Kind: country.QueryRegion, Value: "Asia"}
	g := newFakeGateway().on(ger, []country.Country{germany}).on(asia, []country.Country{japan})
	d := &captureDispatcher{}
	m := New(g, nil, WithDispatcher(d))
	ctx := context.Background()

	require.NoError(t, m.Search(ctx, "Ger"))
	require.NoError(t, m.FilterByRegion(ctx, "Asia"))
	require.Len(t, d.reqs, 2)
	assert.Less(t, d.reqs[0].Ticket, d.reqs[1].Ticket)
	assert.True(t, m.View().Loading)

	// the region filter lands first, then the slower search
	require.NoError(t, workpool.Execute(ctx, d.reqs[1], 0))
	require.NoError(t, workpool.Execute(ctx, d.reqs[0], 0))

	v := m.View()
	assert.Equal(t, []string{"Japan"}, names(v.Items))
	assert.Equal(t, "Asia", v.Selection.Region)
	assert.False(t, v.Loading)
}

func TestStaleFailureIsIgnored(t *testing.T) {
	ger := country.Query{Kind: country.QueryName, Value: "Ger"}
	asia := country.Query{Kind: country.QueryRegion, Value: "Asia"}
	g := newFakeGateway().fail(ger, apperror.Network("country.name", errors.New("timeout"))).
		on(asia, []country.Country{japan})
	d := &captureDispatcher{}
	m := New(g, nil, WithDispatcher(d))
	ctx := context.Background()

	require.NoError(t, m.Search(ctx, "Ger"))
	require.NoError(t, m.FilterByRegion(ctx, "Asia"))

	require.NoError(t, workpool.Execute(ctx, d.reqs[1], 0))
	assert.Error(t, workpool.Execute(ctx, d.reqs[0], 0))

	v := m.View()
	assert.Equal(t, []string{"Japan"}, names(v.Items))
	assert.Empty(t, v.Error)
}

type closedDispatcher struct{}

func (closedDispatcher) Dispatch(context.Context, models.DataRequest) error {
	return errors.New("pool closed")
}

func TestDispatchFailureSettles(t *testing.T) {
	m := New(newFakeGateway(), nil, WithDispatcher(closedDispatcher{}))

	assert.Error(t, m.LoadAll(context.Background()))
	v := m.View()
	assert.False(t, v.Loading)
	assert.Equal(t, "internal_error", v.ErrorKind)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{"", FailureAsEmpty, false},
		{"empty", FailureAsEmpty, false},
		{"KEEP", FailureKeepPrevious, false},
		{"drop", FailureAsEmpty, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
