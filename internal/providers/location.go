package providers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/TobiSchelling/AIVisibility/internal/llm"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// knownLocations maps a lowercase place name to its search locale. Country
// entries leave City empty.
var knownLocations = map[string]llm.UserLocation{
	"sydney":         {City: "Sydney", Country: "AU", Region: "New South Wales"},
	"melbourne":      {City: "Melbourne", Country: "AU", Region: "Victoria"},
	"brisbane":       {City: "Brisbane", Country: "AU", Region: "Queensland"},
	"perth":          {City: "Perth", Country: "AU", Region: "Western Australia"},
	"adelaide":       {City: "Adelaide", Country: "AU", Region: "South Australia"},
	"canberra":       {City: "Canberra", Country: "AU", Region: "Australian Capital Territory"},
	"hobart":         {City: "Hobart", Country: "AU", Region: "Tasmania"},
	"gold coast":     {City: "Gold Coast", Country: "AU", Region: "Queensland"},
	"auckland":       {City: "Auckland", Country: "NZ", Region: "Auckland"},
	"wellington":     {City: "Wellington", Country: "NZ", Region: "Wellington"},
	"london":         {City: "London", Country: "GB", Region: "England"},
	"manchester":     {City: "Manchester", Country: "GB", Region: "England"},
	"birmingham":     {City: "Birmingham", Country: "GB", Region: "England"},
	"edinburgh":      {City: "Edinburgh", Country: "GB", Region: "Scotland"},
	"dublin":         {City: "Dublin", Country: "IE", Region: "Leinster"},
	"new york":       {City: "New York", Country: "US", Region: "New York"},
	"los angeles":    {City: "Los Angeles", Country: "US", Region: "California"},
	"san francisco":  {City: "San Francisco", Country: "US", Region: "California"},
	"chicago":        {City: "Chicago", Country: "US", Region: "Illinois"},
	"houston":        {City: "Houston", Country: "US", Region: "Texas"},
	"austin":         {City: "Austin", Country: "US", Region: "Texas"},
	"seattle":        {City: "Seattle", Country: "US", Region: "Washington"},
	"miami":          {City: "Miami", Country: "US", Region: "Florida"},
	"boston":         {City: "Boston", Country: "US", Region: "Massachusetts"},
	"toronto":        {City: "Toronto", Country: "CA", Region: "Ontario"},
	"vancouver":      {City: "Vancouver", Country: "CA", Region: "British Columbia"},
	"montreal":       {City: "Montreal", Country: "CA", Region: "Quebec"},
	"singapore":      {City: "Singapore", Country: "SG"},
	"australia":      {Country: "AU"},
	"new zealand":    {Country: "NZ"},
	"united kingdom": {Country: "GB"},
	"uk":             {Country: "GB"},
	"ireland":        {Country: "IE"},
	"united states":  {Country: "US"},
	"usa":            {Country: "US"},
	"canada":         {Country: "CA"},
}

type locationPattern struct {
	re  *regexp.Regexp
	loc llm.UserLocation
}

// locationPatterns is knownLocations as word-bounded patterns, longest name
// first so "new york" wins over shorter overlapping names.
var locationPatterns = func() []locationPattern {
	names := make([]string, 0, len(knownLocations))
	for name := range knownLocations {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	out := make([]locationPattern, len(names))
	for i, name := range names {
		out[i] = locationPattern{
			re:  regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
			loc: knownLocations[name],
		}
	}
	return out
}()

// LookupLocation finds the first known place named in text.
func LookupLocation(text string) (llm.UserLocation, bool) {
	lower := strings.ToLower(text)
	for _, p := range locationPatterns {
		if p.re.MatchString(lower) {
			return p.loc, true
		}
	}
	return llm.UserLocation{}, false
}

// ResolveLocation picks the search locale for a query: a place named in the
// query itself wins, then the caller's location context. It returns nil when
// neither yields anything.
func ResolveLocation(query string, lc *models.LocationContext) *llm.UserLocation {
	if loc, ok := LookupLocation(query); ok {
		return &loc
	}
	if lc == nil {
		return nil
	}

	loc := llm.UserLocation{
		City:    strings.TrimSpace(lc.City),
		Country: strings.ToUpper(strings.TrimSpace(lc.CountryCode)),
	}
	if known, ok := LookupLocation(strings.Join([]string{lc.City, lc.Location, lc.Country}, " ")); ok {
		if loc.City == "" {
			loc.City = known.City
		}
		if loc.Country == "" {
			loc.Country = known.Country
		}
		if known.City != "" && strings.EqualFold(known.City, loc.City) {
			loc.Region = known.Region
		}
	}
	if loc.IsZero() {
		return nil
	}
	return &loc
}
