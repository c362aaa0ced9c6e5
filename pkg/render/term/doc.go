// Package term draws transaction graphs on a terminal grid.
//
// [Renderer] paints nodes, edges, labels and the tooltip overlay into a
// cell canvas styled with lipgloss. It also implements
// [interact.Renderer]: the host feeds pointer positions to
// [Renderer.Pointer], the renderer hit-tests them in graph space and emits
// enter/leave events for an [interact.Controller].
//
//	r, err := term.New(g, interact.Size{W: 120, H: 40})
//	c, _ := interact.New(r, g, term.ControllerOptions()...)
//	_ = c.Attach()
//
//	r.Pointer(mouse)
//	o, ok := c.Overlay(r.Camera().Viewport)
//	fmt.Print(r.View(overlayOrNil(o, ok)))
//
// A zero-sized terminal is reported as [ErrNoSurface] instead of drawing
// nothing.
package term
