package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var banner = []struct {
	text  string
	color string
}{
	{` _                           _             `, "#818cf8"},
	{`(_)_ __  ___ _ __   ___  ___| |_ ___  _ __ `, "#a78bfa"},
	{`| | '_ \/ __| '_ \ / _ \/ __| __/ _ \| '__|`, "#c084fc"},
	{`| | | | \__ \ |_) |  __/ (__| || (_) | |   `, "#e879f9"},
	{`|_|_| |_|___/ .__/ \___|\___|\__\___/|_|   `, "#f472b6"},
	{`            |_|                            `, "#fb7185"},
}

// PrintBanner writes the startup banner followed by the listen address.
func PrintBanner(w io.Writer, profile termenv.Profile, addr string) {
	fmt.Fprintln(w)
	for _, line := range banner {
		fmt.Fprintln(w, profile.String(line.text).Foreground(profile.Color(line.color)))
	}
	fmt.Fprintln(w)
	if addr != "" {
		fmt.Fprintf(w, "  listening on %s\n\n", profile.String(addr).Bold())
	}
}
