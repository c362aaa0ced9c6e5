// Package interact maps renderer hover events onto graph entities and keeps
// the tooltip overlay consistent across pan and zoom.
//
// # Coordinate spaces
//
// Graph space ([graph.Position]) is where the layout engine puts nodes.
// Viewport space ([Point]) is pixels or terminal cells on the rendering
// surface. A [Transform] converts between the two; [Camera] is the standard
// pan/zoom implementation.
//
// Everything semantic (the tooltip anchor, hit-testing) lives in graph
// space. Conversion to viewport space happens only in [Controller.Overlay],
// right before painting, with the renderer's current transform. A tooltip
// therefore stays attached to its entity when the camera moves.
//
// # Lifecycle
//
//	c, err := interact.New(renderer, g)
//	if err != nil {
//	    return err
//	}
//	_ = c.Attach()
//	defer c.Close()
//
//	// on every frame:
//	if o, ok := c.Overlay(containerSize); ok {
//	    paint(o)
//	}
//
// Close unsubscribes the controller, destroys the renderer and drops the
// tooltip. Events delivered after Close are ignored.
package interact
