package handlers

import (
	"fmt"
	"strings"

	"wardroom/internal/session"
)

// Dashboard tools reachable by name, checked in order so that inputs
// naming two tools resolve the same way every time.
var navTargets = []struct {
	needle string
	target string
}{
	{"canvass", "canvassing"},
	{"donor", "donors"},
	{"report", "reports"},
	{"trend", "trends"},
	{"settings", "settings"},
	{"map", "map"},
}

// handleNavigation resolves a tool mention into a navigation request.
func handleNavigation(input string, snap Snapshot) Result {
	lower := strings.ToLower(input)

	for _, nt := range navTargets {
		needle, target := nt.needle, nt.target
		if strings.Contains(lower, needle) {
			return Result{
				Response:   fmt.Sprintf("Opening the %s tool.", target),
				Navigation: &Navigation{Target: target},
			}
		}
	}

	return Result{
		Response: "I can open: map, canvassing, donors, reports, trends, or settings. Which one?",
		Actions: []session.SuggestedAction{
			{ID: "nav-canvassing", Label: "Canvassing", Action: "navigate:canvassing"},
			{ID: "nav-reports", Label: "Reports", Action: "navigate:reports"},
		},
	}
}
