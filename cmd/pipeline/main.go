package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charleschow/edgeline/internal/events"
	"github.com/charleschow/edgeline/internal/process"
)

func main() {
	sport := flag.String("sport", "soccer", "which pipeline to run: soccer or basketball")
	flag.Parse()

	switch *sport {
	case "soccer":
		process.Run(process.SportConfig{Sport: events.SportSoccer, SportKey: "soccer"})
	case "basketball":
		process.Run(process.SportConfig{Sport: events.SportBasketball, SportKey: "basketball"})
	default:
		fmt.Fprintf(os.Stderr, "unknown sport %q (use soccer or basketball)\n", *sport)
		os.Exit(1)
	}
}
