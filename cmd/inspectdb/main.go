package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	_ "modernc.org/sqlite"
)

var betsCompact = `SELECT substr(id, 1, 8) AS bet, sport, legs,
	printf('%.2f', total_odds) AS odds,
	printf('%.1f', combined_prob*100) AS prob,
	printf('%.1f', edge*100) AS edge,
	printf('%.2f', stake) AS stake,
	status, COALESCE(result,'') AS result,
	COALESCE(printf('%.2f', profit_loss),'') AS pnl,
	COALESCE(printf('%.2f', clv_percentage),'') AS clv,
	substr(created_at, 1, 10) AS day
FROM bets ORDER BY created_at DESC LIMIT ?`

var picksCompact = `SELECT substr(id, 1, 8) AS pick, substr(bet_id, 1, 8) AS bet,
	label, outcome,
	printf('%.2f', odds) AS odds,
	printf('%.1f', prob*100) AS prob,
	printf('%.1f', edge*100) AS edge,
	COALESCE(printf('%.2f', closing_odds),'') AS closing,
	COALESCE(result,'') AS result
FROM picks ORDER BY rowid DESC LIMIT ?`

var bankrollCompact = `SELECT printf('%.2f', balance) AS balance,
	printf('%+.2f', change) AS change,
	reason, COALESCE(substr(bet_id, 1, 8),'') AS bet,
	substr(recorded_at, 1, 16) AS at
FROM bankroll_history ORDER BY id DESC LIMIT ?`

var oddsCompact = `SELECT substr(match_id, 1, 8) AS match, league,
	home_team||' v '||away_team AS fixture,
	printf('%.2f', home_odds) AS h,
	COALESCE(printf('%.2f', draw_odds),'') AS d,
	printf('%.2f', away_odds) AS a,
	printf('%.1f', margin*100) AS margin,
	substr(match_date, 1, 10) AS day
FROM canonical_odds ORDER BY match_date DESC LIMIT ?`

var tables = map[string]struct {
	table string
	query string
}{
	"bets":     {"bets", betsCompact},
	"picks":    {"picks", picksCompact},
	"bankroll": {"bankroll_history", bankrollCompact},
	"odds":     {"canonical_odds", oddsCompact},
}

var tableOrder = []string{"odds", "bets", "picks", "bankroll"}

func main() {
	n := flag.Int("n", 10, "number of recent rows to display")
	dbPath := flag.String("db", "data/edgeline.db", "sqlite database path")
	which := flag.String("t", "all", "table to inspect: odds, bets, picks, bankroll, or all")
	verbose := flag.Bool("v", false, "show all columns (raw schema)")
	flag.Parse()

	if _, ok := tables[*which]; !ok && *which != "all" {
		fmt.Fprintf(os.Stderr, "unknown table %q (use odds, bets, picks, bankroll, or all)\n", *which)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer db.Close()

	first := true
	for _, name := range tableOrder {
		if *which != "all" && *which != name {
			continue
		}
		if !first {
			fmt.Println()
		}
		first = false

		t := tables[name]
		if *verbose {
			printRaw(db, name, t.table, *n)
		} else {
			printCompact(db, name, t.table, t.query, *n)
		}
	}
}

func printCompact(db *sql.DB, title, table, query string, n int) {
	fmt.Printf("=== %s ===\n", title)

	count := 0
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		fmt.Printf("  (cannot count rows: %v)\n", err)
		return
	}
	if count == 0 {
		fmt.Println("(no data)")
		return
	}

	fmt.Printf("Rows: %d  |  Showing last %d:\n", count, min(n, count))
	printQuery(db, query, n)
}

func printRaw(db *sql.DB, title, table string, n int) {
	fmt.Printf("=== %s (verbose) ===\n", title)

	cols, err := schemaColumns(db, table)
	if err != nil {
		fmt.Printf("  (cannot read schema: %v)\n", err)
		return
	}
	fmt.Printf("Schema: %s\n\n", strings.Join(cols, ", "))

	count := 0
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		fmt.Printf("  (cannot count rows: %v)\n", err)
		return
	}
	if count == 0 {
		fmt.Println("(no data)")
		return
	}

	fmt.Printf("Rows: %d  |  Showing last %d:\n", count, min(n, count))
	printQuery(db, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid DESC LIMIT ?", table), n)
}

func printQuery(db *sql.DB, query string, n int) {
	rows, err := db.Query(query, n)
	if err != nil {
		fmt.Printf("  (query error: %v)\n", err)
		return
	}
	defer rows.Close()

	colNames, _ := rows.Columns()
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(colNames, "\t"))
	fmt.Fprintln(w, strings.Repeat("----\t", len(colNames)))

	vals := make([]any, len(colNames))
	ptrs := make([]any, len(colNames))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var rowBuf [][]string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Fprintf(os.Stderr, "  scan error: %v\n", err)
			continue
		}
		cells := make([]string, len(colNames))
		for i, v := range vals {
			cells[i] = fmtCell(v)
		}
		rowBuf = append(rowBuf, cells)
	}

	for i := len(rowBuf) - 1; i >= 0; i-- {
		fmt.Fprintln(w, strings.Join(rowBuf[i], "\t"))
	}
	w.Flush()
}

func schemaColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt any
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf("%s %s", name, ctype))
	}
	return cols, nil
}

func fmtCell(v any) string {
	if v == nil {
		return "-"
	}
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.5f", x)
	case int64:
		return fmt.Sprintf("%d", x)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
