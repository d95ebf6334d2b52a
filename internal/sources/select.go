package sources

import "github.com/deusflow/geonews/internal/models"

// Select returns the sources that serve c: the country tier if any source
// there passes the language and category filters, else the continent tier,
// else the global wires. The result may be empty.
func (cat Catalog) Select(c models.Context) []Source {
	tiers := []func(Source) bool{
		func(s Source) bool { return c.Country != "" && s.Country == c.Country },
		func(s Source) bool { return c.Continent != "" && s.Continent == c.Continent },
		Source.IsGlobal,
	}
	for _, inTier := range tiers {
		var out []Source
		for _, s := range cat {
			if inTier(s) && languageMatch(c.Languages, s.Languages) && categoryMatch(c.Category, s.Categories) {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// languageMatch is satisfied by any shared language. A context without
// languages places no constraint.
func languageMatch(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// categoryMatch treats national and world as satisfying each other.
func categoryMatch(want string, have []string) bool {
	if want == "" {
		return true
	}
	for _, h := range have {
		if h == want {
			return true
		}
		if (want == "national" && h == "world") || (want == "world" && h == "national") {
			return true
		}
	}
	return false
}
