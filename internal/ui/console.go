// Package ui provides styled console output for the expert bridge.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)

	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// PrintBridgeInfo logs general bridge information.
func PrintBridgeInfo(msg string) {
	infoBadge.Fprint(color.Error, "[BRIDGE]")
	fmt.Fprint(color.Error, " ")
	infoText.Fprintln(color.Error, msg)
}

// PrintExpertTable lists the configured aliases with their providers at
// startup so the user can see exactly what is dispatchable.
func PrintExpertTable(rows [][2]string) {
	mutedText.Fprintln(color.Error, "  ┌──────────────────────┬─────────────────┐")
	for _, row := range rows {
		mutedText.Fprint(color.Error, "  │ ")
		accentText.Fprintf(color.Error, "%-20s", row[0])
		mutedText.Fprint(color.Error, " │ ")
		fmt.Fprintf(color.Error, "%-15s", row[1])
		mutedText.Fprintln(color.Error, " │")
	}
	mutedText.Fprintln(color.Error, "  └──────────────────────┴─────────────────┘")
}

// PrintProviderStatus shows which providers have keys configured.
func PrintProviderStatus(provider string, configured bool) {
	infoBadge.Fprint(color.Error, "[BRIDGE]")
	fmt.Fprintf(color.Error, " %-12s ", provider)
	if configured {
		successText.Fprintln(color.Error, "key configured")
	} else {
		warningText.Fprintln(color.Error, "no key (aliases on this provider will fail)")
	}
}

// PrintStartupInfo prints styled HTTP server startup information.
func PrintStartupInfo(host string, port, experts int) {
	fmt.Fprintln(color.Error)
	infoBadge.Fprint(color.Error, "[BRIDGE]")
	fmt.Fprint(color.Error, " HTTP server starting on ")
	accentText.Fprintf(color.Error, "http://%s:%d\n", host, port)

	infoBadge.Fprint(color.Error, "[BRIDGE]")
	fmt.Fprint(color.Error, " Experts available: ")
	if experts > 0 {
		successText.Fprintf(color.Error, "%d\n", experts)
	} else {
		errorText.Fprintf(color.Error, "%d\n", experts)
	}

	fmt.Fprintln(color.Error)
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	endpoints := []struct {
		method, path, desc string
	}{
		{"POST", "/v1/ask", "Ask a single expert"},
		{"POST", "/v1/compare", "Fan out to several experts"},
		{"POST", "/v1/draft", "Draft a file rewrite"},
		{"GET", "/v1/experts", "List configured aliases"},
		{"GET", "/health", "Health check"},
	}

	mutedText.Fprintln(color.Error, "  ┌──────────────────────────────────────────────────┐")
	for _, e := range endpoints {
		mutedText.Fprint(color.Error, "  │ ")
		if e.method == "POST" {
			methodPOST.Fprintf(color.Error, " %s ", e.method)
		} else {
			methodGET.Fprintf(color.Error, " %s  ", e.method)
		}
		fmt.Fprintf(color.Error, " %-13s ", e.path)
		mutedText.Fprintf(color.Error, " %-26s", e.desc)
		mutedText.Fprintln(color.Error, " │")
	}
	mutedText.Fprintln(color.Error, "  └──────────────────────────────────────────────────┘")
	fmt.Fprintln(color.Error)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Fprintln(color.Error)
	warningBadge.Fprint(color.Error, "[SHUTDOWN]")
	warningText.Fprintln(color.Error, " Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Fprint(color.Error, " OK ")
	fmt.Fprint(color.Error, " ")
	successText.Fprintln(color.Error, "Bridge stopped.")
}

// TruncateModel shortens a model id for table display.
func TruncateModel(model string, maxLen int) string {
	if len(model) <= maxLen {
		return model
	}
	if idx := strings.LastIndex(model, "/"); idx >= 0 && len(model)-idx <= maxLen {
		return "…" + model[idx:]
	}
	return model[:maxLen-1] + "…"
}
