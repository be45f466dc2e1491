package errstack_test

import (
	"bytes"
	"testing"

	"github.com/irforge/llcore/internal/errstack"
	"github.com/stretchr/testify/require"
)

func TestPushErrorLatches(t *testing.T) {
	c := errstack.New(0)
	require.False(t, c.HasError())

	c.PushError(errstack.KindTypeError, "bad field", errstack.SourceLoc{File: "t.go", Line: 1})
	require.True(t, c.HasError())

	last, ok := c.LastError()
	require.True(t, ok)
	require.Equal(t, errstack.KindTypeError, last.Kind)
	require.Equal(t, "bad field", last.Message)
}

func TestClearUnlatches(t *testing.T) {
	c := errstack.New(0)
	c.PushError(errstack.KindJIT, "boom", errstack.SourceLoc{})
	require.True(t, c.HasError())
	c.Clear()
	require.False(t, c.HasError())
	_, ok := c.LastError()
	require.False(t, ok)
}

func TestBoundedLog(t *testing.T) {
	c := errstack.New(3)
	for i := 0; i < 10; i++ {
		c.PushError(errstack.KindUnknown, "e", errstack.SourceLoc{Line: i})
	}
	require.Len(t, c.Errors(), 3)
	last, _ := c.LastError()
	require.Equal(t, 9, last.Trace[len(last.Trace)-1].Line)
}

func TestSourceStackGuard(t *testing.T) {
	c := errstack.New(0)
	func() {
		pop := c.PushSource(errstack.SourceLoc{File: "a.go", Line: 10})
		defer pop()
		c.PushError(errstack.KindValueError, "inner", errstack.SourceLoc{File: "a.go", Line: 11})
	}()
	last, ok := c.LastError()
	require.True(t, ok)
	require.Len(t, last.Trace, 2)
	require.Equal(t, 10, last.Trace[0].Line)
	require.Equal(t, 11, last.Trace[1].Line)
}

func TestPrint(t *testing.T) {
	c := errstack.New(0)
	c.PushError(errstack.KindModule, "dup module", errstack.SourceLoc{File: "m.go", Line: 4})
	var buf bytes.Buffer
	c.Print(&buf, 0)
	require.Contains(t, buf.String(), "Module: dup module")
}
