// oddsfeed_mock serves a local stand-in for the odds API so the pipeline
// can run end-to-end without a key or quota. It fabricates a fixed slate of
// fixtures per league with jittered bookmaker prices, marks each fixture
// completed once its kickoff passes, and invents a plausible score.
//
// Point the pipeline at it with:
//
//	ODDS_API_BASE_URL=http://localhost:8970/v4 ODDS_API_KEY=mock go run ./cmd/pipeline
//
// Usage:
//
//	go run ./cmd/oddsfeed_mock [-addr :8970] [-fixtures 6]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var leagueTeams = map[string][]string{
	"soccer_epl": {
		"Arsenal", "Chelsea", "Liverpool", "Manchester City",
		"Manchester United", "Tottenham Hotspur", "Newcastle United", "Aston Villa",
	},
	"soccer_spain_la_liga": {
		"Real Madrid", "Barcelona", "Atletico Madrid", "Sevilla",
		"Real Sociedad", "Villarreal", "Athletic Bilbao", "Real Betis",
	},
	"soccer_italy_serie_a": {
		"Inter Milan", "AC Milan", "Juventus", "Napoli",
		"Roma", "Lazio", "Atalanta", "Fiorentina",
	},
	"soccer_germany_bundesliga": {
		"Bayern Munich", "Borussia Dortmund", "RB Leipzig", "Bayer Leverkusen",
		"Eintracht Frankfurt", "VfB Stuttgart", "SC Freiburg", "VfL Wolfsburg",
	},
	"basketball_nba": {
		"Boston Celtics", "Denver Nuggets", "Milwaukee Bucks", "Phoenix Suns",
		"Los Angeles Lakers", "Golden State Warriors", "Miami Heat", "Dallas Mavericks",
	},
}

var bookmakerNames = []string{"pinnacle", "bet365", "williamhill", "unibet"}

type outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type market struct {
	Key      string    `json:"key"`
	Outcomes []outcome `json:"outcomes"`
}

type bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []market `json:"markets"`
}

type event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type scoreEntry struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

type scored struct {
	ID           string       `json:"id"`
	SportKey     string       `json:"sport_key"`
	CommenceTime time.Time    `json:"commence_time"`
	Completed    bool         `json:"completed"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	Scores       []scoreEntry `json:"scores,omitempty"`
}

type fixture struct {
	id       string
	league   string
	home     string
	away     string
	kickoff  time.Time
	fairHome float64 // fair home probability the jittered prices orbit
}

type mockFeed struct {
	rng      *rand.Rand
	fixtures map[string][]fixture // league key -> slate
}

func newMockFeed(perLeague int, seed int64) *mockFeed {
	rng := rand.New(rand.NewSource(seed))
	f := &mockFeed{rng: rng, fixtures: make(map[string][]fixture)}

	for league, teams := range leagueTeams {
		order := rng.Perm(len(teams))
		n := perLeague
		if n > len(teams)/2 {
			n = len(teams) / 2
		}
		for i := 0; i < n; i++ {
			home := teams[order[2*i]]
			away := teams[order[2*i+1]]
			f.fixtures[league] = append(f.fixtures[league], fixture{
				id:       fmt.Sprintf("mock-%s-%d-%d", league, seed, i),
				league:   league,
				home:     home,
				away:     away,
				kickoff:  time.Now().Add(time.Duration(2+i*6) * time.Hour),
				fairHome: 0.35 + rng.Float64()*0.30,
			})
		}
	}
	return f
}

// price turns a probability into decimal odds with a ~5% bookmaker margin
// and per-book jitter.
func (f *mockFeed) price(prob float64) float64 {
	margin := 1.05
	jitter := 1 + (f.rng.Float64()-0.5)*0.04
	odds := 1 / (prob * margin) * jitter
	if odds < 1.05 {
		odds = 1.05
	}
	return float64(int(odds*100)) / 100
}

func (f *mockFeed) oddsHandler(w http.ResponseWriter, r *http.Request) {
	league := leagueFromPath(r.URL.Path, "/odds")
	slate, ok := f.fixtures[league]
	if !ok {
		http.Error(w, `{"message":"Unknown sport"}`, http.StatusNotFound)
		return
	}

	threeWay := strings.HasPrefix(league, "soccer")
	events := make([]event, 0, len(slate))
	for _, fx := range slate {
		pHome := fx.fairHome
		pDraw := 0.0
		if threeWay {
			pDraw = 0.25
		}
		pAway := 1 - pHome - pDraw

		var books []bookmaker
		for _, name := range bookmakerNames {
			outs := []outcome{
				{Name: fx.home, Price: f.price(pHome)},
				{Name: fx.away, Price: f.price(pAway)},
			}
			if threeWay {
				outs = append(outs, outcome{Name: "Draw", Price: f.price(pDraw)})
			}
			books = append(books, bookmaker{
				Key: name, Title: name,
				Markets: []market{{Key: "h2h", Outcomes: outs}},
			})
		}
		events = append(events, event{
			ID: fx.id, SportKey: league, CommenceTime: fx.kickoff,
			HomeTeam: fx.home, AwayTeam: fx.away, Bookmakers: books,
		})
	}
	writeJSON(w, events)
}

func (f *mockFeed) scoresHandler(w http.ResponseWriter, r *http.Request) {
	league := leagueFromPath(r.URL.Path, "/scores")
	slate, ok := f.fixtures[league]
	if !ok {
		http.Error(w, `{"message":"Unknown sport"}`, http.StatusNotFound)
		return
	}

	now := time.Now()
	out := make([]scored, 0, len(slate))
	for _, fx := range slate {
		s := scored{
			ID: fx.id, SportKey: league, CommenceTime: fx.kickoff,
			HomeTeam: fx.home, AwayTeam: fx.away,
		}
		if now.After(fx.kickoff.Add(2 * time.Hour)) {
			s.Completed = true
			home, away := f.fakeScore(fx, strings.HasPrefix(league, "basketball"))
			s.Scores = []scoreEntry{
				{Name: fx.home, Score: strconv.Itoa(home)},
				{Name: fx.away, Score: strconv.Itoa(away)},
			}
		}
		out = append(out, s)
	}
	writeJSON(w, out)
}

// fakeScore samples a final score loosely consistent with the fixture's
// fair probability so mock seasons look believable in the feature history.
func (f *mockFeed) fakeScore(fx fixture, basketball bool) (int, int) {
	homeWins := f.rng.Float64() < fx.fairHome
	if basketball {
		lo, hi := 95+f.rng.Intn(20), 105+f.rng.Intn(25)
		if homeWins {
			return hi, lo
		}
		return lo, hi
	}
	lo, hi := f.rng.Intn(2), 1+f.rng.Intn(3)
	if homeWins {
		return hi, lo
	}
	return lo, hi
}

func leagueFromPath(path, suffix string) string {
	trimmed := strings.TrimSuffix(path, suffix)
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") == "" {
			http.Error(w, `{"message":"Missing API key"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func main() {
	addr := flag.String("addr", ":8970", "listen address")
	perLeague := flag.Int("fixtures", 3, "fixtures per league")
	seed := flag.Int64("seed", time.Now().Unix(), "rng seed")
	flag.Parse()

	feed := newMockFeed(*perLeague, *seed)

	mux := http.NewServeMux()
	for league := range leagueTeams {
		mux.HandleFunc("/v4/sports/"+league+"/odds", requireKey(feed.oddsHandler))
		mux.HandleFunc("/v4/sports/"+league+"/scores", requireKey(feed.scoresHandler))
	}

	n := 0
	for _, slate := range feed.fixtures {
		n += len(slate)
	}
	log.Printf("oddsfeed_mock on %s serving %d fixtures across %d leagues", *addr, n, len(feed.fixtures))
	log.Fatal(http.ListenAndServe(*addr, mux))
}
