// Package ui provides styled console output for the expert bridge.
// Everything is written to stderr: in stdio mode stdout belongs to the MCP
// transport and must carry nothing but protocol frames.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(color.Error)
	cyan.Fprintln(color.Error, "╔══════════════════════════════════════════════════════════╗")

	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "███████╗██╗  ██╗██████╗ ███████╗██████╗ ████████╗")
	cyan.Fprintln(color.Error, "         ║")
	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "██╔════╝╚██╗██╔╝██╔══██╗██╔════╝██╔══██╗╚══██╔══╝")
	cyan.Fprintln(color.Error, "         ║")
	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "█████╗   ╚███╔╝ ██████╔╝█████╗  ██████╔╝   ██║")
	cyan.Fprintln(color.Error, "            ║")
	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "██╔══╝   ██╔██╗ ██╔═══╝ ██╔══╝  ██╔══██╗   ██║")
	cyan.Fprintln(color.Error, "            ║")
	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "███████╗██╔╝ ██╗██║     ███████╗██║  ██║   ██║")
	cyan.Fprintln(color.Error, "            ║")
	cyan.Fprint(color.Error, "║  ")
	magenta.Fprint(color.Error, "╚══════╝╚═╝  ╚═╝╚═╝     ╚══════╝╚═╝  ╚═╝   ╚═╝")
	cyan.Fprintln(color.Error, "            ║")

	cyan.Fprintln(color.Error, "╠══════════════════════════════════════════════════════════╣")

	cyan.Fprint(color.Error, "║  ")
	white.Fprint(color.Error, "EXPERT BRIDGE")
	dim.Fprint(color.Error, "  │  groq · openrouter · huggingface")
	dim.Fprint(color.Error, "       ")
	cyan.Fprintln(color.Error, "║")

	cyan.Fprintln(color.Error, "╚══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(color.Error)
}

// PrintMiniBanner displays a one-line banner for stdio mode, where startup
// output should stay quiet.
func PrintMiniBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	cyan.Fprint(color.Error, "expert-bridge")
	dim.Fprintln(color.Error, " · MCP stdio mode")
}
