// Package widgets provides ready-made elements for kite trees.
//
// Every widget is a plain struct implementing core.Element and is mounted by
// wrapping it in a node:
//
//	root := widgets.Column(8,
//	    core.NewNode(&widgets.Label{Text: "Volume"}, nil),
//	    core.NewNode(&widgets.Button{Label: "Mute"}, nil),
//	)
//
// Layout widgets (Flex, Padding) implement core.Arranger to place their
// children. Interactive widgets (Button, Toggle) implement core.Runtime and
// react to clicks and to Enter or Space while focused; they report through
// Activated and Toggled events on their own scope and on the window scope.
//
// Style is plain struct fields. Zero colors fall back to the package
// defaults.
package widgets
