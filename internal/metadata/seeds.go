package metadata

// Static language tables for levels restcountries does not cover. Keys are
// lower-case.
var (
	stateLanguages = map[string][]string{
		"maharashtra":    {"mr", "hi"},
		"tamil nadu":     {"ta"},
		"karnataka":      {"kn"},
		"kerala":         {"ml"},
		"telangana":      {"te"},
		"andhra pradesh": {"te"},
		"west bengal":    {"bn"},
		"gujarat":        {"gu"},
		"punjab":         {"pa", "hi"},
		"uttar pradesh":  {"hi"},
		"delhi":          {"hi", "en"},
		"catalonia":      {"ca", "es"},
		"quebec":         {"fr"},
		"bavaria":        {"de"},
	}

	cityLanguages = map[string][]string{
		"pune":      {"mr"},
		"mumbai":    {"mr"},
		"chennai":   {"ta"},
		"bengaluru": {"kn"},
		"hyderabad": {"te"},
		"kolkata":   {"bn"},
		"doha":      {"ar"},
		"madrid":    {"es"},
		"barcelona": {"ca", "es"},
		"paris":     {"fr"},
		"sao paulo": {"pt"},
	}

	continentLanguages = map[string][]string{
		"asia":          {"en"},
		"europe":        {"en"},
		"africa":        {"en", "fr"},
		"south_america": {"es", "pt"},
		"north_america": {"en", "es"},
		"oceania":       {"en"},
	}

	// countryContinents places catalog and common request countries.
	countryContinents = map[string]string{
		"india":                "asia",
		"qatar":                "asia",
		"pakistan":             "asia",
		"bangladesh":           "asia",
		"china":                "asia",
		"japan":                "asia",
		"united arab emirates": "asia",
		"saudi arabia":         "asia",
		"spain":                "europe",
		"france":               "europe",
		"germany":              "europe",
		"italy":                "europe",
		"united kingdom":       "europe",
		"poland":               "europe",
		"netherlands":          "europe",
		"brazil":               "south_america",
		"argentina":            "south_america",
		"colombia":             "south_america",
		"united states":        "north_america",
		"canada":               "north_america",
		"mexico":               "north_america",
		"nigeria":              "africa",
		"egypt":                "africa",
		"kenya":                "africa",
		"south africa":         "africa",
		"australia":            "oceania",
		"new zealand":          "oceania",
	}
)
