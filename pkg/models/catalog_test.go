package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	c := Builtin()
	require.Equal(t, "gemma-7b-it", c.Default)
	_, ok := c.Lookup("gemini-2.0-flash")
	require.True(t, ok)
}

func TestSelect_RemapPreservesBothIDs(t *testing.T) {
	sel := Builtin().Select("groq/llama3-70b-8192")
	require.True(t, sel.Remapped)
	require.True(t, sel.Known)
	require.Equal(t, "groq/llama3-70b-8192", sel.Requested)
	require.Equal(t, "llama3-8b-8192", sel.Effective)
	require.Equal(t, "llama3-8b-8192 (was groq/llama3-70b-8192)", sel.String())
}

func TestSelect_CurrentAndUnknown(t *testing.T) {
	c := Builtin()
	require.Equal(t, Selection{Requested: "mixtral-8x7b-32768", Effective: "mixtral-8x7b-32768", Known: true}, c.Select("mixtral-8x7b-32768"))

	unknown := c.Select("my-finetune")
	require.False(t, unknown.Known)
	require.False(t, unknown.Remapped)
	require.Equal(t, "my-finetune", unknown.Effective)

	require.Equal(t, "gemma-7b-it", c.Select("  ").Effective)
}

func TestLoad_RejectsAliasClash(t *testing.T) {
	_, err := Load(strings.NewReader(`
models:
  - {label: A, value: a, aliases: [b]}
  - {label: B, value: b}
`))
	require.Error(t, err)
}

func TestLoad_DefaultsToFirst(t *testing.T) {
	c, err := Load(strings.NewReader("models:\n  - {label: A, value: a}\n"))
	require.NoError(t, err)
	require.Equal(t, "a", c.Default)
}

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	require.Equal(t, "gemma-7b-it", h.Current().Effective)
	h.Select("groq/mixtral-8x7b-32768")
	require.Equal(t, "mixtral-8x7b-32768", h.Current().Effective)
	require.Equal(t, "groq/mixtral-8x7b-32768", h.Current().Requested)
}
