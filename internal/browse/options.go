package browse

import (
	"sort"

	"github.com/AbdulWasayUl/country-explorer/services/country"
)

const (
	RegionSentinel   = "Filter by Region"
	CurrencySentinel = "Filter by Currency"
	LanguageSentinel = "Filter by Language"
)

// Regions accepted by the region endpoint.
var Regions = []string{"Africa", "Americas", "Antarctic", "Asia", "Europe", "Oceania"}

func RegionOptions() []string {
	return append([]string{RegionSentinel}, Regions...)
}

// Index maps display names found in a result list to upstream codes.
// Options lists the names alphabetically behind the sentinel.
type Index struct {
	Options []string
	Codes   map[string]string
}

// Code resolves a display name. The sentinel never resolves.
func (ix Index) Code(name string) (string, bool) {
	code, ok := ix.Codes[name]
	return code, ok
}

func CurrencyIndex(list []country.Country) Index {
	return buildIndex(CurrencySentinel, list, func(c country.Country) map[string]string {
		names := make(map[string]string, len(c.Currencies))
		for code, cur := range c.Currencies {
			names[code] = cur.Name
		}
		return names
	})
}

func LanguageIndex(list []country.Country) Index {
	return buildIndex(LanguageSentinel, list, func(c country.Country) map[string]string {
		return c.Languages
	})
}

// buildIndex collects code->name pairs from every record. A name shared by
// several codes resolves to the lexically smallest code.
func buildIndex(sentinel string, list []country.Country, pairs func(country.Country) map[string]string) Index {
	codes := make(map[string]string)
	for _, c := range list {
		for code, name := range pairs(c) {
			if name == "" || code == "" {
				continue
			}
			if prev, ok := codes[name]; !ok || code < prev {
				codes[name] = code
			}
		}
	}

	names := make([]string, 0, len(codes))
	for name := range codes {
		names = append(names, name)
	}
	sort.Strings(names)

	return Index{
		Options: append([]string{sentinel}, names...),
		Codes:   codes,
	}
}

// Visible applies the favorites-only restriction.
func Visible(list []country.Country, favoritesOnly bool, has func(string) bool) []country.Country {
	if !favoritesOnly {
		return list
	}
	out := make([]country.Country, 0, len(list))
	for _, c := range list {
		if has != nil && has(c.CommonName()) {
			out = append(out, c)
		}
	}
	return out
}

func TotalPages(count int) int {
	return (count + ItemsPerPage - 1) / ItemsPerPage
}

// ClampPage keeps page within [1, totalPages]; an empty list has page 1.
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

func PageItems(list []country.Country, page int) []country.Country {
	start := (page - 1) * ItemsPerPage
	if start < 0 || start >= len(list) {
		return []country.Country{}
	}
	end := start + ItemsPerPage
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
