package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQName_String(t *testing.T) {
	require.Equal(t, "p:local", PrefixedName("p", "local", "urn:x").String())
	require.Equal(t, "local", Name("local").String())
}

func TestIsNCName(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"foo", true},
		{"_foo", true},
		{"foo-bar", true},
		{"foo.bar", true},
		{"foo123", true},
		{"", false},
		{"1foo", false},
		{"-foo", false},
		{"foo:bar", false},
		{"foo bar", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.valid, IsNCName(tt.input))
		})
	}
}

func TestIsValidQName(t *testing.T) {
	require.True(t, IsValidQName(Name("r")))
	require.True(t, IsValidQName(PrefixedName("p", "local", "urn:x")))
	require.False(t, IsValidQName(Name("")))
	require.False(t, IsValidQName(PrefixedName("1p", "local", "")))
	require.False(t, IsValidQName(Name("a:b")))
}

func TestKind_Structural(t *testing.T) {
	require.True(t, KindDocumentRoot.Structural())
	require.True(t, KindElement.Structural())
	require.True(t, KindText.Structural())
	require.True(t, KindComment.Structural())
	require.True(t, KindProcessingInstruction.Structural())
	require.False(t, KindAttribute.Structural())
	require.False(t, KindNamespace.Structural())
}
