package state

import (
	"fmt"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart.
//
// Shapes:
//   - Entry point: ((Circle))
//   - Node with a router: {Rhombus}
//   - End: (((Double circle)))
//   - Default: [Rectangle]
//
// Conditional transitions are labelled with their outcome key. Nodes listed
// in visited, typically a run's path, get a highlight class.
func (c *CompiledGraph) Mermaid(visited ...string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	endUsed := false
	for _, name := range c.order {
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		_, routed := c.conditional[name]
		switch {
		case name == c.entry:
			opener, closer = "((", "))"
		case routed:
			opener, closer = "{", "}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, name, closer)

		if to, ok := c.edges[name]; ok {
			endUsed = endUsed || to == End
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(to))
		}

		if cond, ok := c.conditional[name]; ok {
			for _, key := range cond.OutcomeKeys() {
				to := cond.Outcomes[key]
				endUsed = endUsed || to == End
				label := strings.ReplaceAll(key, "\"", "'")
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(to))
			}
		}
	}

	if endUsed {
		fmt.Fprintf(&sb, "    %s(((\"end\")))\n", sanitizeMermaidID(End))
	}

	if len(visited) > 0 {
		sb.WriteString("\n    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, name := range visited {
			safeID := sanitizeMermaidID(name)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
