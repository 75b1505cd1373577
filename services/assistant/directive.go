package assistant

import (
	"regexp"
	"strings"

	"concierge/models"
)

// The assistant backend embeds an in-band marker in its natural-language reply
// when the client should offer a diagram, e.g. "[DIAGRAM_PROMPT:personal]".
var (
	diagramDirectiveRe      = regexp.MustCompile(`\[DIAGRAM_PROMPT:([A-Za-z]+)\]`)
	diagramDirectiveStripRe = regexp.MustCompile(`\s*\[DIAGRAM_PROMPT:[A-Za-z]+\]\s*`)
)

// ExtractDiagramDirective searches a decoded reply for a diagram-offer
// directive. When the directive names a recognized variant, every occurrence
// of the directive pattern is removed from the text and the variant is
// reported with offered=true. A directive with an unrecognized word is left
// in the text untouched rather than silently swallowed, and no offer is made.
func ExtractDiagramDirective(reply string) (clean string, variant models.DiagramVariant, offered bool) {
	m := diagramDirectiveRe.FindStringSubmatch(reply)
	if m == nil {
		return reply, "", false
	}
	variant, ok := models.ParseDiagramVariant(m[1])
	if !ok {
		return reply, "", false
	}
	clean = strings.TrimSpace(diagramDirectiveStripRe.ReplaceAllString(reply, " "))
	return clean, variant, true
}
