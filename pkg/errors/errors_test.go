package errors

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := &Error{
		Op:   "core.Node.Layout",
		Kind: KindLayout,
		Err:  stderrors.New("regions exhausted"),
	}
	assert.Equal(t, "core.Node.Layout [layout]: regions exhausted", err.Error())
}

func TestErrorWithNode(t *testing.T) {
	err := &Error{
		Op:   "core.Node.Render",
		Kind: KindRender,
		Node: "*widgets.Rectangle",
		Err:  stderrors.New("boom"),
	}
	assert.Contains(t, err.Error(), "node=*widgets.Rectangle")
}

func TestErrorUnwrap(t *testing.T) {
	inner := stderrors.New("inner")
	err := New("op", KindDispatch, inner)
	assert.ErrorIs(t, err, inner)
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindRender, "render"},
		{KindLayout, "layout"},
		{KindDispatch, "dispatch"},
		{KindConfig, "config"},
		{KindPlatform, "platform"},
		{KindPanic, "panic"},
		{KindContract, "contract"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String(), "ErrorKind(%d)", tt.kind)
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	assert.Equal(t, "panic: test panic", err.Error())

	err.Op = "engine.HandleEvent"
	assert.Equal(t, "panic in engine.HandleEvent: test panic", err.Error())
}

func TestViolationPanicsWithContractError(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		ce, ok := r.(*ContractError)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, "hittest.Builder.Finish", ce.Op)
		assert.Equal(t, "contract violation in hittest.Builder.Finish: stack empty", ce.Error())
	}()
	Violation("hittest.Builder.Finish", "stack %s", "empty")
}

func TestBoundaryErrorUnwrapsContract(t *testing.T) {
	ce := &ContractError{Op: "x", Detail: "y"}
	err := &BoundaryError{Phase: "render", Recovered: ce}
	var target *ContractError
	require.True(t, stderrors.As(err, &target))
	assert.Same(t, ce, target)

	plain := &BoundaryError{Phase: "layout", Recovered: "string value"}
	assert.Nil(t, plain.Unwrap())
	assert.Equal(t, "frame aborted during layout: string value", plain.Error())
}

func TestReport(t *testing.T) {
	var captured *Error
	handler := &testHandler{onError: func(err *Error) { captured = err }}

	useHandler(t, handler)

	Report(&Error{Op: "test.op", Kind: KindConfig, Err: stderrors.New("bad")})

	require.NotNil(t, captured)
	assert.Equal(t, "test.op", captured.Op)
	assert.False(t, captured.Timestamp.IsZero())
}

func TestReportBoundaryError(t *testing.T) {
	var captured *BoundaryError
	handler := &testHandler{onBoundary: func(err *BoundaryError) { captured = err }}

	useHandler(t, handler)

	ReportBoundaryError(&BoundaryError{Phase: "render", Recovered: "x"})
	require.NotNil(t, captured)
	assert.False(t, captured.Timestamp.IsZero())
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	handler := &testHandler{onPanic: func(err *PanicError) { captured = err }}

	useHandler(t, handler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	require.NotNil(t, captured)
	assert.Equal(t, "intentional test panic", captured.Value)
	assert.Equal(t, "test.recover", captured.Op)
	assert.NotEmpty(t, captured.StackTrace)
}

func TestRecoveredKind(t *testing.T) {
	violation := &ContractError{Op: "hittest.Finish", Detail: "empty stack"}

	assert.Equal(t, KindContract, (&BoundaryError{Phase: "render", Recovered: violation}).Kind())
	assert.Equal(t, KindPanic, (&BoundaryError{Phase: "render", Recovered: "boom"}).Kind())
	assert.Equal(t, KindPanic, (&BoundaryError{Phase: "layout", Recovered: stderrors.New("e")}).Kind())
	assert.Equal(t, KindContract, (&PanicError{Value: violation}).Kind())
	assert.Equal(t, KindPanic, (&PanicError{Value: 42}).Kind())
}

func TestRecoverContractKeepsOp(t *testing.T) {
	var captured *PanicError
	useHandler(t, &testHandler{onPanic: func(err *PanicError) { captured = err }})

	func() {
		defer Recover("")
		Violation("hittest.Finish", "empty stack")
	}()

	require.NotNil(t, captured)
	assert.Equal(t, "hittest.Finish", captured.Op)
	assert.Equal(t, KindContract, captured.Kind())
	assert.NotContains(t, captured.StackTrace, "runtime.gopanic")
	assert.Contains(t, captured.StackTrace, "TestRecoverContractKeepsOp")
}

func TestSetHandlerNil(t *testing.T) {
	useHandler(t, &testHandler{})
	SetHandler(nil)
	_, ok := Handler().(*LogHandler)
	assert.True(t, ok, "SetHandler(nil) should set LogHandler, got %T", Handler())
}

func TestLogHandlerWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Verbose: true, Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	h.HandleError(&Error{Op: "op.a", Kind: KindRender, Err: stderrors.New("e"), StackTrace: "trace"})
	h.HandlePanic(&PanicError{Op: "op.b", Value: "v"})
	h.HandleBoundaryError(&BoundaryError{Phase: "layout", Recovered: "r"})
	h.HandleBoundaryError(&BoundaryError{Phase: "render", Recovered: &ContractError{Op: "op.c", Detail: "d"}})

	out := buf.String()
	assert.Contains(t, out, "op=op.a")
	assert.Contains(t, out, "stack=trace")
	assert.Contains(t, out, "op=op.b")
	assert.Contains(t, out, "phase=layout")
	assert.Contains(t, out, "kind=panic")
	assert.Contains(t, out, "phase=render kind=contract")
}

func useHandler(t *testing.T, h ErrorHandler) {
	t.Helper()
	old := Handler()
	SetHandler(h)
	t.Cleanup(func() { SetHandler(old) })
}

type testHandler struct {
	onError    func(*Error)
	onPanic    func(*PanicError)
	onBoundary func(*BoundaryError)
}

func (h *testHandler) HandleError(err *Error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}

func (h *testHandler) HandleBoundaryError(err *BoundaryError) {
	if h.onBoundary != nil {
		h.onBoundary(err)
	}
}
