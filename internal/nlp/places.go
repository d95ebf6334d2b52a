package nlp

import (
	"strings"

	"github.com/deusflow/geonews/internal/models"
)

type cityInfo struct {
	state   string
	country string
}

// Place tables. Keys are lower-case.
var (
	gazetteerCities = map[string]cityInfo{
		"pune":               {"maharashtra", "india"},
		"mumbai":             {"maharashtra", "india"},
		"nagpur":             {"maharashtra", "india"},
		"nashik":             {"maharashtra", "india"},
		"delhi":              {"delhi", "india"},
		"new delhi":          {"delhi", "india"},
		"chennai":            {"tamil nadu", "india"},
		"coimbatore":         {"tamil nadu", "india"},
		"madurai":            {"tamil nadu", "india"},
		"bengaluru":          {"karnataka", "india"},
		"bangalore":          {"karnataka", "india"},
		"mysuru":             {"karnataka", "india"},
		"hyderabad":          {"telangana", "india"},
		"kolkata":            {"west bengal", "india"},
		"ahmedabad":          {"gujarat", "india"},
		"surat":              {"gujarat", "india"},
		"jaipur":             {"rajasthan", "india"},
		"lucknow":            {"uttar pradesh", "india"},
		"kanpur":             {"uttar pradesh", "india"},
		"varanasi":           {"uttar pradesh", "india"},
		"patna":              {"bihar", "india"},
		"bhopal":             {"madhya pradesh", "india"},
		"indore":             {"madhya pradesh", "india"},
		"kochi":              {"kerala", "india"},
		"thiruvananthapuram": {"kerala", "india"},
		"guwahati":           {"assam", "india"},
		"bhubaneswar":        {"odisha", "india"},
		"chandigarh":         {"punjab", "india"},
		"amritsar":           {"punjab", "india"},
		"dehradun":           {"uttarakhand", "india"},
		"shimla":             {"himachal pradesh", "india"},
		"srinagar":           {"jammu and kashmir", "india"},
		"karachi":            {"sindh", "pakistan"},
		"lahore":             {"punjab", "pakistan"},
		"islamabad":          {"islamabad capital territory", "pakistan"},
		"dhaka":              {"dhaka division", "bangladesh"},
		"kathmandu":          {"bagmati", "nepal"},
		"colombo":            {"western province", "sri lanka"},
		"doha":               {"doha", "qatar"},
		"dubai":              {"dubai", "united arab emirates"},
		"riyadh":             {"riyadh province", "saudi arabia"},
		"beijing":            {"beijing", "china"},
		"shanghai":           {"shanghai", "china"},
		"tokyo":              {"tokyo", "japan"},
		"osaka":              {"osaka", "japan"},
		"seoul":              {"seoul", "south korea"},
		"london":             {"england", "united kingdom"},
		"manchester":         {"england", "united kingdom"},
		"paris":              {"ile-de-france", "france"},
		"berlin":             {"berlin", "germany"},
		"munich":             {"bavaria", "germany"},
		"madrid":             {"community of madrid", "spain"},
		"barcelona":          {"catalonia", "spain"},
		"rome":               {"lazio", "italy"},
		"moscow":             {"moscow", "russia"},
		"kyiv":               {"kyiv", "ukraine"},
		"new york":           {"new york", "united states"},
		"los angeles":        {"california", "united states"},
		"san francisco":      {"california", "united states"},
		"chicago":            {"illinois", "united states"},
		"houston":            {"texas", "united states"},
		"washington":         {"district of columbia", "united states"},
		"toronto":            {"ontario", "canada"},
		"montreal":           {"quebec", "canada"},
		"mexico city":        {"mexico city", "mexico"},
		"sao paulo":          {"sao paulo", "brazil"},
		"rio de janeiro":     {"rio de janeiro", "brazil"},
		"buenos aires":       {"buenos aires", "argentina"},
		"cairo":              {"cairo", "egypt"},
		"lagos":              {"lagos", "nigeria"},
		"nairobi":            {"nairobi", "kenya"},
		"johannesburg":       {"gauteng", "south africa"},
		"sydney":             {"new south wales", "australia"},
		"melbourne":          {"victoria", "australia"},
		"auckland":           {"auckland", "new zealand"},
	}

	gazetteerStates = map[string]string{
		"maharashtra":       "india",
		"karnataka":         "india",
		"tamil nadu":        "india",
		"kerala":            "india",
		"gujarat":           "india",
		"rajasthan":         "india",
		"haryana":           "india",
		"uttar pradesh":     "india",
		"madhya pradesh":    "india",
		"bihar":             "india",
		"west bengal":       "india",
		"odisha":            "india",
		"assam":             "india",
		"uttarakhand":       "india",
		"himachal pradesh":  "india",
		"telangana":         "india",
		"andhra pradesh":    "india",
		"jammu and kashmir": "india",
		"sindh":             "pakistan",
		"california":        "united states",
		"texas":             "united states",
		"florida":           "united states",
		"illinois":          "united states",
		"ontario":           "canada",
		"quebec":            "canada",
		"bavaria":           "germany",
		"catalonia":         "spain",
		"new south wales":   "australia",
		"queensland":        "australia",
	}

	gazetteerCountries = map[string]string{
		"india":                "india",
		"pakistan":             "pakistan",
		"bangladesh":           "bangladesh",
		"nepal":                "nepal",
		"sri lanka":            "sri lanka",
		"china":                "china",
		"japan":                "japan",
		"south korea":          "south korea",
		"qatar":                "qatar",
		"united arab emirates": "united arab emirates",
		"uae":                  "united arab emirates",
		"saudi arabia":         "saudi arabia",
		"iran":                 "iran",
		"israel":               "israel",
		"russia":               "russia",
		"ukraine":              "ukraine",
		"united kingdom":       "united kingdom",
		"uk":                   "united kingdom",
		"britain":              "united kingdom",
		"france":               "france",
		"germany":              "germany",
		"spain":                "spain",
		"italy":                "italy",
		"poland":               "poland",
		"netherlands":          "netherlands",
		"united states":        "united states",
		"usa":                  "united states",
		"canada":               "canada",
		"mexico":               "mexico",
		"brazil":               "brazil",
		"argentina":            "argentina",
		"colombia":             "colombia",
		"egypt":                "egypt",
		"nigeria":              "nigeria",
		"kenya":                "kenya",
		"south africa":         "south africa",
		"australia":            "australia",
		"new zealand":          "new zealand",
	}
)

const maxPlaceWords = 3

// Gazetteer finds known places in text.
type Gazetteer struct{}

func NewGazetteer() *Gazetteer { return &Gazetteer{} }

// Find returns the most specific known place mentioned in text, filled in
// upward from the tables, or nil. Earlier mentions win within a level.
func (Gazetteer) Find(text string) *models.Location {
	tokens := words(text)
	var city, state, country string

	for i := 0; i < len(tokens); i++ {
		for n := min(maxPlaceWords, len(tokens)-i); n >= 1; n-- {
			name := strings.Join(tokens[i:i+n], " ")
			matched := true
			switch {
			case city == "" && gazetteerCities[name] != (cityInfo{}):
				city = name
			case state == "" && gazetteerStates[name] != "":
				state = name
			case country == "" && gazetteerCountries[name] != "":
				country = gazetteerCountries[name]
			default:
				matched = false
			}
			if matched {
				i += n - 1
				break
			}
		}
	}

	switch {
	case city != "":
		info := gazetteerCities[city]
		return &models.Location{City: city, State: info.state, Country: info.country, Confidence: 0.9}
	case state != "":
		return &models.Location{State: state, Country: gazetteerStates[state], Confidence: 0.75}
	case country != "":
		return &models.Location{Country: country, Confidence: 0.6}
	}
	return nil
}
