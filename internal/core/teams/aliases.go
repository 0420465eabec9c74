package teams

// SoccerAliases maps the spellings the odds and results feeds use to one
// canonical form. Keys are post-Normalize (lowercase, no diacritics), so
// "Atlético Madrid" arrives here as "atletico madrid".
var SoccerAliases = map[string]string{
	// Premier League
	"man united": "manchester united", "man utd": "manchester united",
	"manchester utd": "manchester united",
	"man city":       "manchester city",
	"spurs":          "tottenham hotspur", "tottenham": "tottenham hotspur",
	"wolves": "wolverhampton wanderers", "wolverhampton": "wolverhampton wanderers",
	"brighton": "brighton & hove albion", "brighton and hove albion": "brighton & hove albion",
	"nottm forest": "nottingham forest", "nott'm forest": "nottingham forest",
	"west ham":  "west ham united",
	"newcastle": "newcastle united", "newcastle utd": "newcastle united",
	"leeds":           "leeds united",
	"sheffield utd":   "sheffield united",
	"afc bournemouth": "bournemouth",

	// La Liga
	"atletico madrid": "atletico de madrid", "atletico": "atletico de madrid",
	"atl. madrid": "atletico de madrid", "atl madrid": "atletico de madrid",
	"r. sociedad":     "real sociedad",
	"athletic bilbao": "athletic club", "ath bilbao": "athletic club",
	"celta vigo": "celta de vigo", "celta": "celta de vigo",
	"rayo":  "rayo vallecano",
	"betis": "real betis",

	// Bundesliga
	"bayern munich": "bayern munchen", "bayern": "bayern munchen",
	"fc bayern": "bayern munchen", "fc bayern munchen": "bayern munchen",
	"dortmund": "borussia dortmund", "bvb": "borussia dortmund",
	"borussia m'gladbach": "borussia monchengladbach",
	"gladbach":            "borussia monchengladbach",
	"monchengladbach":     "borussia monchengladbach",
	"leverkusen":          "bayer leverkusen", "bayer 04": "bayer leverkusen",
	"rb leipzig": "rasenballsport leipzig", "leipzig": "rasenballsport leipzig",
	"koln": "fc koln", "cologne": "fc koln",
	"frankfurt": "eintracht frankfurt",

	// Serie A
	"inter": "inter milan", "internazionale": "inter milan",
	"ac milan": "milan",
	"juve":     "juventus",
	"napoli":   "ssc napoli",
	"roma":     "as roma", "as rome": "as roma",
	"lazio": "ss lazio",

	// Ligue 1
	"psg": "paris saint-germain", "paris sg": "paris saint-germain",
	"paris saint germain": "paris saint-germain",
	"marseille":           "olympique marseille", "om": "olympique marseille",
	"lyon": "olympique lyonnais", "ol": "olympique lyonnais",
	"monaco": "as monaco",
	"lille":  "lille osc",
}

// BasketballAliases covers the NBA short forms the odds feed emits.
var BasketballAliases = map[string]string{
	"la lakers":    "los angeles lakers",
	"lal":          "los angeles lakers",
	"la clippers":  "los angeles clippers",
	"lac":          "los angeles clippers",
	"gs warriors":  "golden state warriors",
	"gsw":          "golden state warriors",
	"ny knicks":    "new york knicks",
	"nyk":          "new york knicks",
	"okc":          "oklahoma city thunder",
	"okc thunder":  "oklahoma city thunder",
	"sa spurs":     "san antonio spurs",
	"sas":          "san antonio spurs",
	"no pelicans":  "new orleans pelicans",
	"nop":          "new orleans pelicans",
	"phx suns":     "phoenix suns",
	"phx":          "phoenix suns",
	"philadelphia": "philadelphia 76ers",
	"phi 76ers":    "philadelphia 76ers",
	"sixers":       "philadelphia 76ers",
	"blazers":      "portland trail blazers",
	"por blazers":  "portland trail blazers",
	"wolves":       "minnesota timberwolves",
	"min wolves":   "minnesota timberwolves",
	"cavs":         "cleveland cavaliers",
	"mavs":         "dallas mavericks",
	"nets":         "brooklyn nets",
	"bkn nets":     "brooklyn nets",
}
