// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"

	"github.com/fvttdev/fvttdev/internal/issue"
)

// glamourStyle picks dark or light by terminal background and falls back to
// plain text when output is not a terminal.
const glamourStyle = "auto"

// renderActionable formats a non-fatal error with its suggestions, followed
// by the catalog guidance for its issue when one is linked.
func renderActionable(ae *issue.ActionableError, verbose bool) string {
	var sb strings.Builder
	sb.WriteString(ErrorStyle.Render("Error: "))
	sb.WriteString(ae.Format(verbose))
	if iss := ae.Issue(); iss != nil {
		if rendered, err := iss.Render(glamourStyle); err == nil {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimRight(rendered, "\n"))
		}
	}
	return sb.String()
}
