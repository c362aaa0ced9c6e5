// Package theme maps semantic color tokens to concrete colors for the light
// and dark dashboard modes.
//
// Graph entities never carry concrete colors. The builder assigns a [Token]
// (source, depth tier, reversal, ...) and every renderer resolves it through
// the [Palette] selected by the current [Mode]. Switching modes therefore
// never touches the graph.
package theme

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects a palette.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// DefaultMode matches the dashboard's default color scheme.
const DefaultMode = Dark

// ParseMode converts a user-supplied string into a Mode.
// The empty string yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultMode, nil
	case string(Light):
		return Light, nil
	case string(Dark):
		return Dark, nil
	}
	return "", fmt.Errorf("invalid theme %q (must be one of: light, dark)", s)
}

// Token is a semantic color name.
type Token string

// Entity tokens, assigned by the graph builder.
const (
	TokenSource   Token = "source"
	TokenTier1    Token = "tier1"
	TokenTier2    Token = "tier2"
	TokenTier3    Token = "tier3"
	TokenTierDeep Token = "tierDeep"
	TokenEdge     Token = "edge"
	TokenReversal Token = "reversal"
)

// Chrome tokens, used by renderers for everything that is not a graph entity.
const (
	TokenLabel          Token = "label"
	TokenEdgeLabel      Token = "edgeLabel"
	TokenDefaultNode    Token = "defaultNode"
	TokenDefaultEdge    Token = "defaultEdge"
	TokenBackground     Token = "background"
	TokenBorder         Token = "border"
	TokenTooltipBG      Token = "tooltipBackground"
	TokenTooltipFG      Token = "tooltipForeground"
	TokenTooltipBorder  Token = "tooltipBorder"
	TokenTooltipDivider Token = "tooltipDivider"
)

// TierToken returns the color token for a node at the given depth.
// Depth 0 is the source; deeper levels share TokenTierDeep.
func TierToken(depth int) Token {
	switch {
	case depth <= 0:
		return TokenSource
	case depth == 1:
		return TokenTier1
	case depth == 2:
		return TokenTier2
	case depth == 3:
		return TokenTier3
	}
	return TokenTierDeep
}

// Palette resolves tokens to CSS color strings.
type Palette struct {
	Mode   Mode
	colors map[Token]string
}

var entityColors = map[Token]string{
	TokenSource:   "#ff9800",
	TokenTier1:    "#4caf50",
	TokenTier2:    "#2196f3",
	TokenTier3:    "#9c27b0",
	TokenTierDeep: "#607d8b",
	TokenEdge:     "#888888",
	TokenReversal: "#f44336",
}

var chromeColors = map[Mode]map[Token]string{
	Light: {
		TokenLabel:          "#7827e3",
		TokenEdgeLabel:      "#666666",
		TokenDefaultNode:    "#2196f3",
		TokenDefaultEdge:    "#666666",
		TokenBackground:     "#f0f4f8",
		TokenBorder:         "#cccccc",
		TokenTooltipBG:      "rgba(255,255,255,0.95)",
		TokenTooltipFG:      "#000000",
		TokenTooltipBorder:  "#dddddd",
		TokenTooltipDivider: "#eeeeee",
	},
	Dark: {
		TokenLabel:          "#08611e",
		TokenEdgeLabel:      "#aaaaaa",
		TokenDefaultNode:    "#90caf9",
		TokenDefaultEdge:    "#aaaaaa",
		TokenBackground:     "#0f2027",
		TokenBorder:         "#444444",
		TokenTooltipBG:      "rgba(33,33,33,0.95)",
		TokenTooltipFG:      "#ffffff",
		TokenTooltipBorder:  "#444444",
		TokenTooltipDivider: "#eeeeee",
	},
}

// PaletteFor returns the palette for mode. Unknown modes fall back to DefaultMode.
func PaletteFor(mode Mode) Palette {
	chrome, ok := chromeColors[mode]
	if !ok {
		mode = DefaultMode
		chrome = chromeColors[mode]
	}
	colors := make(map[Token]string, len(entityColors)+len(chrome))
	for k, v := range entityColors {
		colors[k] = v
	}
	for k, v := range chrome {
		colors[k] = v
	}
	return Palette{Mode: mode, colors: colors}
}

// Color returns the color for t. Unknown tokens resolve to the default node color.
func (p Palette) Color(t Token) string {
	if c, ok := p.colors[t]; ok {
		return c
	}
	if c, ok := p.colors[TokenDefaultNode]; ok {
		return c
	}
	return entityColors[TokenTierDeep]
}

// IsDark reports whether the palette is the dark variant.
func (p Palette) IsDark() bool { return p.Mode == Dark }

// Hex returns the color for t as #rrggbb, dropping any alpha channel.
// Terminals and Graphviz don't understand rgba().
func (p Palette) Hex(t Token) string {
	c := p.Color(t)
	inner, ok := strings.CutPrefix(c, "rgba(")
	if !ok {
		inner, ok = strings.CutPrefix(c, "rgb(")
	}
	if !ok {
		return c
	}
	parts := strings.Split(strings.TrimSuffix(inner, ")"), ",")
	if len(parts) < 3 {
		return c
	}
	var rgb [3]int
	for i := range rgb {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return c
		}
		rgb[i] = max(0, min(v, 255))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
