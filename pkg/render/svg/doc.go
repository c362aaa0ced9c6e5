// Package svg renders positioned transaction graphs as standalone SVG.
//
// Nodes are drawn as circles sized by depth, edges as arrows (dashed for
// return edges) labelled with their amount. Colors come from a
// [theme.Palette], so the same graph renders in light or dark mode.
//
// # Tooltips
//
// Unless [WithoutTooltips] is given, the document embeds a hover overlay.
// Every node and edge carries its details in a data attribute; a small
// script shows them in a box anchored at the pointer, converted to user
// space with the current screen transform and clamped inside the viewBox.
// The first line of the details is the bold title.
//
// # Usage
//
//	svg := svg.RenderSVG(g, svg.WithPalette(theme.PaletteFor(theme.Light)))
package svg
