package classify

// rule is a weighted keyword set: each matching phrase scores 3, each
// matching signal word scores 1.
type rule struct {
	phrases []string
	signals []string
}

type categoryRule struct {
	name string
	rule
}

// categories is ordered; ties go to the earlier entry.
var categories = []categoryRule{
	{"sports", rule{
		phrases: []string{"world cup", "cricket", "football", "soccer", "tennis", "badminton", "olympics", "tournament"},
		signals: []string{"match", "league", "goal", "score", "player", "coach", "team", "championship"},
	}},
	{"entertainment", rule{
		phrases: []string{"web series", "bollywood", "hollywood", "box office", "netflix", "film", "movie"},
		signals: []string{"cinema", "actor", "actress", "music", "song", "album", "trailer", "ott", "celebrity"},
	}},
	{"business", rule{
		phrases: []string{"stock market", "ipo", "quarterly results", "shares", "investment", "startup"},
		signals: []string{"market", "stock", "revenue", "profit", "loss", "funding", "company", "corporate", "economy", "trade"},
	}},
	{"technology", rule{
		phrases: []string{"artificial intelligence", "machine learning", "smartphone", "software", "cybersecurity"},
		signals: []string{"ai", "app", "chip", "device", "internet", "tech", "startup", "data", "robot"},
	}},
	{"health", rule{
		phrases: []string{"public health", "vaccine", "outbreak", "hospital", "disease"},
		signals: []string{"doctor", "patients", "health", "virus", "cancer", "medicine", "covid", "infection"},
	}},
	{"science", rule{
		phrases: []string{"space mission", "climate change", "researchers", "scientists", "nasa"},
		signals: []string{"study", "research", "space", "planet", "species", "physics", "satellite"},
	}},
	{"politics", rule{
		phrases: []string{"prime minister", "election", "parliament", "government"},
		signals: []string{"minister", "policy", "law", "president", "bjp", "congress", "senate", "vote", "opposition"},
	}},
	{"disaster", rule{
		phrases: []string{"earthquake", "flood", "cyclone", "hurricane", "wildfire", "landslide", "tsunami"},
		signals: []string{"drought", "storm", "emergency", "rescue", "evacuation", "rainfall", "victims"},
	}},
	{"terror_attack", rule{
		phrases: []string{"suicide bombing", "terror attack", "terrorist", "al-qaeda", "isis"},
		signals: []string{"terror", "attack", "bomb", "blast", "explosion", "militant", "gunmen", "hostage"},
	}},
}

// subRules narrows a category to a sub-label.
var subRules = map[string][]categoryRule{
	"sports": {
		{"cricket", rule{
			phrases: []string{"cricket", "test match", "one day international", "ipl", "icc"},
			signals: []string{"runs", "wickets", "overs", "batsman", "bowler"},
		}},
		{"football", rule{
			phrases: []string{"football", "soccer", "fifa", "uefa", "premier league"},
			signals: []string{"goal", "penalty", "striker"},
		}},
		{"basketball", rule{
			phrases: []string{"basketball", "nba", "wnba"},
			signals: []string{"dunk", "three-pointer", "playoffs"},
		}},
		{"tennis", rule{
			phrases: []string{"tennis", "wimbledon", "us open", "grand slam"},
			signals: []string{"set", "match point", "atp", "wta"},
		}},
	},
	"disaster": {
		{"earthquake", rule{
			phrases: []string{"earthquake", "seismic", "richter"},
			signals: []string{"aftershock", "epicenter", "tremors"},
		}},
		{"flood", rule{
			phrases: []string{"flood", "flash flood", "river overflow"},
			signals: []string{"submerged", "evacuation", "water level"},
		}},
		{"fire", rule{
			phrases: []string{"wildfire", "forest fire", "blaze"},
			signals: []string{"firefighters", "smoke"},
		}},
		{"tsunami", rule{
			phrases: []string{"tsunami", "tidal wave"},
			signals: []string{"coastal evacuation", "waves hit"},
		}},
	},
	"business": {
		{"earnings", rule{
			phrases: []string{"earnings", "profit", "revenue", "q1", "q2", "q3", "q4"},
			signals: []string{"results", "growth", "decline"},
		}},
		{"stock_market", rule{
			phrases: []string{"stocks", "shares", "market"},
			signals: []string{"index", "trading", "investors"},
		}},
	},
	"technology": {
		{"product_launch", rule{
			phrases: []string{"launches", "unveils", "introduces"},
			signals: []string{"device", "feature", "upgrade"},
		}},
		{"artificial_intelligence", rule{
			phrases: []string{"artificial intelligence", "ai model", "machine learning"},
			signals: []string{"training", "neural", "llm"},
		}},
	},
	"health": {
		{"disease", rule{
			phrases: []string{"outbreak", "epidemic", "infection"},
			signals: []string{"cases", "virus", "symptoms"},
		}},
		{"public_health", rule{
			phrases: []string{"public health", "health ministry", "vaccination drive"},
			signals: []string{"campaign", "guidelines", "hospitals"},
		}},
	},
	"science": {
		{"space", rule{
			phrases: []string{"space mission", "rocket", "orbit", "nasa", "isro"},
			signals: []string{"launch", "satellite", "moon", "mars"},
		}},
		{"climate", rule{
			phrases: []string{"climate change", "global warming", "emissions"},
			signals: []string{"temperature", "carbon", "glacier"},
		}},
	},
	"entertainment": {
		{"movies", rule{
			phrases: []string{"box office", "film", "movie"},
			signals: []string{"director", "trailer", "cinema"},
		}},
		{"music", rule{
			phrases: []string{"album", "concert", "single"},
			signals: []string{"singer", "song", "tour"},
		}},
	},
}

// entityBoost maps a known entity to the sub-label it implies.
var entityBoost = map[string][]struct{ entity, sub string }{
	"sports": {
		{"eagles", "football"},
		{"nfl", "football"},
		{"ipl", "cricket"},
		{"icc", "cricket"},
		{"nba", "basketball"},
		{"wimbledon", "tennis"},
	},
	"business": {
		{"apple", "earnings"},
		{"google", "earnings"},
		{"amazon", "earnings"},
		{"ipo", "stock_market"},
		{"nasdaq", "stock_market"},
	},
	"technology": {
		{"openai", "artificial_intelligence"},
		{"chatgpt", "artificial_intelligence"},
		{"iphone", "product_launch"},
		{"android", "product_launch"},
	},
	"health": {
		{"covid", "public_health"},
		{"who", "public_health"},
		{"cancer", "disease"},
		{"vaccine", "medicine"},
	},
	"science": {
		{"nasa", "space"},
		{"spacex", "space"},
		{"climate", "climate"},
		{"research", "research"},
	},
	"entertainment": {
		{"netflix", "movies"},
		{"oscars", "movies"},
		{"spotify", "music"},
		{"album", "music"},
	},
}

type candidate struct {
	label string // offered to the model
	sub   string // stored sub-label
}

// zeroShotLabels are the sub-labels a zero-shot model may choose from.
var zeroShotLabels = map[string][]candidate{
	"sports": {
		{"football", "football"},
		{"cricket", "cricket"},
		{"basketball", "basketball"},
		{"tennis", "tennis"},
		{"other sports", "sports_general"},
	},
	"business": {
		{"company earnings", "earnings"},
		{"stock market", "stock_market"},
		{"mergers and acquisitions", "mergers"},
		{"startup news", "startup"},
		{"business general", "business_general"},
	},
	"technology": {
		{"artificial intelligence", "artificial_intelligence"},
		{"product launch", "product_launch"},
		{"cybersecurity", "cybersecurity"},
		{"software updates", "software_update"},
		{"technology general", "technology_general"},
	},
	"health": {
		{"disease outbreak", "disease"},
		{"public health", "public_health"},
		{"medical research", "research"},
		{"medicine", "medicine"},
		{"health general", "health_general"},
	},
	"science": {
		{"space exploration", "space"},
		{"climate science", "climate"},
		{"scientific research", "research"},
		{"physics", "physics"},
		{"science general", "science_general"},
	},
	"entertainment": {
		{"movies", "movies"},
		{"music", "music"},
		{"celebrity news", "celebrity"},
		{"television", "television"},
		{"entertainment general", "entertainment_general"},
	},
}
