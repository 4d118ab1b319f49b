package country

type Name struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}

type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type Flags struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt,omitempty"`
}

type Maps struct {
	GoogleMaps     string `json:"googleMaps,omitempty"`
	OpenStreetMaps string `json:"openStreetMaps,omitempty"`
}

// Country is one record as returned by restcountries v3.1. Name.Common is
// used as the identifier throughout even though upstream does not promise
// it is unique.
type Country struct {
	Name       Name                `json:"name"`
	CCA2       string              `json:"cca2,omitempty"`
	CCA3       string              `json:"cca3,omitempty"`
	Population int64               `json:"population"`
	Region     string              `json:"region"`
	Subregion  string              `json:"subregion,omitempty"`
	Capital    []string            `json:"capital,omitempty"`
	Languages  map[string]string   `json:"languages,omitempty"`
	Currencies map[string]Currency `json:"currencies,omitempty"`
	Flags      Flags               `json:"flags"`
	Area       float64             `json:"area"`
	Borders    []string            `json:"borders,omitempty"`
	Maps       Maps                `json:"maps,omitempty"`
}

// CommonName returns the display key of the record.
func (c Country) CommonName() string {
	return c.Name.Common
}
