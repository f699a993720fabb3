// Package core provides the element tree: nodes, the child shapes that
// compose them, and the render, layout and event contract they share.
//
// # Children
//
// Every child structure implements Children. A node does not know the shape of
// its children; it only calls the four Children methods, and each shape
// recurses into its own members:
//
//	root := core.NewNode(panel{}, core.Group{
//	    core.NewNode(button{label: "ok"}, core.Empty{}),
//	    core.NewList(rows...),
//	    core.NewOptional[*core.Node[badge]](),
//	})
//
// Group is a fixed tuple, List a homogeneous sequence, Optional zero or one
// child, Slot a child shared between owners, and Empty no child at all.
//
// # Frames
//
// Each frame the engine calls Layout on the root with the window region and
// then Render. Layout pulls exactly one region per node from the source it is
// given; a node passes its own children the source returned by its element's
// Arrange method, or its own region repeated. Render draws the element,
// registers the node's interact region into the hit-test build and recurses.
//
// # Pointer events
//
// EmitEvent walks the whole tree with every semantic pointer event. A node is
// logically entered when the pointer is inside its interact region or any
// descendant is entered. Nodes announce changes on their own scope with
// event.PointerEntered, event.PointerOut and event.Click.
//
// # Runtimes
//
// An element implementing Runtime gets a goroutine when its node is first
// rendered. The node's storage switches to shared mode so that the goroutine
// can reach the element through RuntimeInit.App. After the runtime returns and
// releases its handle the node switches back to unique storage.
package core
