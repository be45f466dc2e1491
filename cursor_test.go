package llcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend/refbackend"
)

func TestBindCreatesMainModuleAndRunsHooks(t *testing.T) {
	c := New("prog", refbackend.New())
	var hooked string
	c.MainModuleHook(func(m *Module) { hooked = m.Name() })

	m := c.Bind()
	require.NotNil(t, m)
	require.Equal(t, "prog", m.Name())
	require.Equal(t, "prog", hooked)
	require.True(t, c.IsBindCalled())
}

func TestMainModuleHookRefusedAfterBind(t *testing.T) {
	c := New("prog", refbackend.New())
	c.Bind()
	c.MainModuleHook(func(m *Module) {})
	require.True(t, c.Errors().HasError())
}

func TestGenModuleBeforeBindFails(t *testing.T) {
	c := New("prog", refbackend.New())
	m := c.GenModule()
	require.Nil(t, m)
	require.True(t, c.Errors().HasError())
}

func TestGenModuleAfterBindNumbersSequentially(t *testing.T) {
	c := New("prog", refbackend.New())
	c.Bind()
	m1 := c.GenModule()
	m2 := c.GenModule()
	require.NotEqual(t, m1.Name(), m2.Name())

	var seen []string
	c.ForEachModule(func(m *Module) { seen = append(seen, m.Name()) })
	require.ElementsMatch(t, []string{m1.Name(), m2.Name()}, seen)
}

func TestCleanupMakesCursorUnusable(t *testing.T) {
	c := New("prog", refbackend.New())
	c.Bind()
	c.Cleanup()
	require.True(t, c.IsDeleted())

	m := c.GenModule()
	require.Nil(t, m)
	require.True(t, c.Errors().HasError())
}

func TestABINamespaceTagsDebugAndReleaseDifferently(t *testing.T) {
	dbg := New("prog", refbackend.New(), WithDebugABI(true))
	rel := New("prog", refbackend.New(), WithDebugABI(false))
	require.NotEqual(t, dbg.ABINamespace("net"), rel.ABINamespace("net"))
}
