package linksym_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/linksym"
)

func TestFullNameGlobalVsNamespaced(t *testing.T) {
	require.Equal(t, "foo", linksym.Global("foo").FullName())
	require.Equal(t, "ns_foo", linksym.Namespaced("ns", "foo").FullName())
}

func TestRegistryRejectsDuplicateFullNames(t *testing.T) {
	r := linksym.NewRegistry()
	require.True(t, r.Register(linksym.Symbol{Name: linksym.Global("f"), Class: linksym.ClassFunction}))
	require.False(t, r.Register(linksym.Symbol{Name: linksym.Global("f"), Class: linksym.ClassFunction}))
	require.Len(t, r.All(), 1)
}

func TestRegistryAllowsSameShortNameAcrossNamespaces(t *testing.T) {
	r := linksym.NewRegistry()
	require.True(t, r.Register(linksym.Symbol{Name: linksym.Namespaced("a", "f")}))
	require.True(t, r.Register(linksym.Symbol{Name: linksym.Namespaced("b", "f")}))
	require.Len(t, r.All(), 2)
}
