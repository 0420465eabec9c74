package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/charleschow/edgeline/internal/core/sports"
	"github.com/charleschow/edgeline/internal/core/teams"
	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/telemetry"
)

// Snapshot quality gates: a capture below these is audit noise, not signal.
const (
	minBookmakers  = 2
	maxQualityOdds = 20.0
)

// LeagueFeed maps one API sport key to the league name it carries.
type LeagueFeed struct {
	Key    string // e.g. "soccer_epl"
	League string // e.g. "Premier League"
}

// FeedsFor lists the league feeds polled per sport.
func FeedsFor(sport events.Sport) []LeagueFeed {
	if sport == events.SportBasketball {
		return []LeagueFeed{{Key: "basketball_nba", League: "NBA"}}
	}
	return []LeagueFeed{
		{Key: "soccer_epl", League: "Premier League"},
		{Key: "soccer_spain_la_liga", League: "La Liga"},
		{Key: "soccer_italy_serie_a", League: "Serie A"},
		{Key: "soccer_germany_bundesliga", League: "Bundesliga"},
		{Key: "soccer_uefa_champs_league", League: "Champions League"},
	}
}

// OddsClient fetches fixtures, prices, and scores from the odds API.
type OddsClient struct {
	*Client
}

func NewOddsClient(c *Client) *OddsClient { return &OddsClient{Client: c} }

// apiEvent is the odds API's event payload.
type apiEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Bookmakers   []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// Upcoming is one fetched fixture plus its capture metadata.
type Upcoming struct {
	Match      sports.Match
	Bookmakers int
}

// FetchUpcoming pulls the h2h market for every league feed of a sport.
// Prices are the mean across quoting bookmakers, matching how the odds
// table was built historically. Feeds that fail are skipped with a warning;
// a partial capture beats no capture.
func (c *OddsClient) FetchUpcoming(ctx context.Context, sport events.Sport) ([]Upcoming, error) {
	var out []Upcoming
	var lastErr error
	for _, feed := range FeedsFor(sport) {
		q := url.Values{}
		q.Set("regions", "us,eu")
		q.Set("markets", "h2h")
		q.Set("oddsFormat", "decimal")
		q.Set("dateFormat", "iso")

		body, _, err := c.get(ctx, "/sports/"+feed.Key+"/odds", q)
		if err != nil {
			telemetry.Warnf("ingest: %s: %v", feed.League, err)
			lastErr = err
			continue
		}

		var apiEvents []apiEvent
		if err := json.Unmarshal(body, &apiEvents); err != nil {
			telemetry.Warnf("ingest: %s: decode: %v", feed.League, err)
			lastErr = err
			continue
		}

		for _, ev := range apiEvents {
			if up, ok := parseEvent(ev, sport, feed.League); ok {
				out = append(out, up)
			}
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("ingest: every feed failed: %w", lastErr)
	}
	telemetry.Metrics.MatchesFetched.Add(int64(len(out)))
	return out, nil
}

// parseEvent averages the h2h prices across bookmakers and normalizes team
// names into canonical keys.
func parseEvent(ev apiEvent, sport events.Sport, league string) (Upcoming, bool) {
	var homeSum, drawSum, awaySum float64
	var homeN, drawN, awayN int
	for _, bk := range ev.Bookmakers {
		for _, mkt := range bk.Markets {
			if mkt.Key != "h2h" {
				continue
			}
			for _, o := range mkt.Outcomes {
				switch o.Name {
				case ev.HomeTeam:
					homeSum += o.Price
					homeN++
				case ev.AwayTeam:
					awaySum += o.Price
					awayN++
				case "Draw":
					drawSum += o.Price
					drawN++
				}
			}
		}
	}
	if homeN == 0 || awayN == 0 {
		return Upcoming{}, false
	}

	odds := sports.MarketOdds{
		HomeWin: round2(homeSum / float64(homeN)),
		AwayWin: round2(awaySum / float64(awayN)),
	}
	if drawN > 0 {
		odds.Draw = round2(drawSum / float64(drawN))
	}

	return Upcoming{
		Match: sports.Match{
			ID:       ev.ID,
			Sport:    sport,
			League:   league,
			HomeTeam: teams.Key(string(sport), ev.HomeTeam),
			AwayTeam: teams.Key(string(sport), ev.AwayTeam),
			Date:     ev.CommenceTime,
			Odds:     odds,
		},
		Bookmakers: len(ev.Bookmakers),
	}, true
}

// QualityReject names the reason an upcoming capture fails the snapshot
// filters, empty when it passes.
func QualityReject(up Upcoming) string {
	if up.Bookmakers < minBookmakers {
		return fmt.Sprintf("only %d bookmakers quoting", up.Bookmakers)
	}
	for _, out := range up.Match.Odds.Outcomes() {
		if o := up.Match.Odds.For(out); o > maxQualityOdds {
			return fmt.Sprintf("%s odds %.2f above %.0f", out, o, maxQualityOdds)
		}
	}
	return ""
}

// apiScore is the odds API's scores payload.
type apiScore struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	Scores    []struct {
		Name  string `json:"name"`
		Score string `json:"score"`
	} `json:"scores"`
}

// FetchResults pulls completed match scores for a sport over the trailing
// daysFrom window. Incomplete or unparseable rows are skipped.
func (c *OddsClient) FetchResults(ctx context.Context, sport events.Sport, daysFrom int) ([]sports.Result, error) {
	var out []sports.Result
	var lastErr error
	fetched := false
	for _, feed := range FeedsFor(sport) {
		q := url.Values{}
		q.Set("daysFrom", strconv.Itoa(daysFrom))
		q.Set("dateFormat", "iso")

		body, _, err := c.get(ctx, "/sports/"+feed.Key+"/scores", q)
		if err != nil {
			telemetry.Warnf("ingest: scores %s: %v", feed.League, err)
			lastErr = err
			continue
		}
		fetched = true

		var scores []apiScore
		if err := json.Unmarshal(body, &scores); err != nil {
			telemetry.Warnf("ingest: scores %s: decode: %v", feed.League, err)
			continue
		}
		for _, sc := range scores {
			if r, ok := parseScore(sc); ok {
				out = append(out, r)
			}
		}
	}
	if !fetched {
		return nil, fmt.Errorf("ingest: every scores feed failed: %w", lastErr)
	}
	return out, nil
}

func parseScore(sc apiScore) (sports.Result, bool) {
	if !sc.Completed || len(sc.Scores) < 2 {
		return sports.Result{}, false
	}
	var home, away int
	var haveHome, haveAway bool
	for _, s := range sc.Scores {
		n, err := strconv.Atoi(s.Score)
		if err != nil {
			return sports.Result{}, false
		}
		switch s.Name {
		case sc.HomeTeam:
			home, haveHome = n, true
		case sc.AwayTeam:
			away, haveAway = n, true
		}
	}
	if !haveHome || !haveAway {
		return sports.Result{}, false
	}
	return sports.Result{
		MatchID:   sc.ID,
		HomeScore: home,
		AwayScore: away,
		Outcome:   sports.OutcomeFromScores(home, away),
	}, true
}

// FetchClosing returns the latest pre-kickoff prices per outcome for the
// given match IDs: match id → outcome → decimal odds. Matches no feed still
// quotes are simply absent from the map.
func (c *OddsClient) FetchClosing(ctx context.Context, sport events.Sport, matchIDs map[string]bool) (map[string]map[string]float64, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	ups, err := c.FetchUpcoming(ctx, sport)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]float64)
	for _, up := range ups {
		if !matchIDs[up.Match.ID] {
			continue
		}
		byOutcome := make(map[string]float64, 3)
		for _, o := range up.Match.Odds.Outcomes() {
			byOutcome[string(o)] = up.Match.Odds.For(o)
		}
		out[up.Match.ID] = byOutcome
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
