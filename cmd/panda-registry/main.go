// Command panda-registry serves a PandA-style block/field/attribute
// registry over simulated hardware.
//
// Usage:
//
//	panda-registry <command> [flags]
//
// Commands:
//
//	serve      Build the registry, restore saved state and run until stopped
//	check      Validate a layout file and print its structure
//	log view   View an event log in human-readable format
//	log stats  Show statistics about an event log
//
// Examples:
//
//	# Serve the built-in layout with an interactive console
//	panda-registry serve --console
//
//	# Serve a layout, persisting state and exposing metrics
//	panda-registry serve --layout panda.yaml --state /var/lib/panda/state.json --metrics :9100
//
//	# Validate a layout
//	panda-registry check panda.yaml
//
//	# Show failed puts from an event log
//	panda-registry log view --errors registry.rlog
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
