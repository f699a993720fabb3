// Package testing drives element trees in tests without a real window.
//
// # Quick Start
//
// Create a tester around a tree, render a frame and simulate input:
//
//	func TestCounter(t *testing.T) {
//	    button := core.NewNode(&widgets.Button{}, nil)
//	    tester := kitetest.NewTesterWithT(t, button)
//	    tester.Pump()
//
//	    tester.Tap(button)
//	    tester.Pump()
//	}
//
// Every input call goes through engine.Window.HandleEvent, so nodes see the
// same pointer normalization, hit-chain delivery and focus handling as in a
// running window.
//
// # Snapshot Testing
//
// Capture the hit-test table of the last frame and compare it to a golden
// file:
//
//	tester.CaptureSnapshot().MatchesFile(t, "testdata/panel.snapshot.json")
//
// Update snapshots with:
//
//	KITE_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import kitetest "github.com/go-drift/kite/pkg/testing"
package testing
