package parsers

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextParserParse(t *testing.T) {
	parser := NewTextParser()

	text, err := parser.Parse(strings.NewReader("  hello world  \n"))
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestTextParserEmpty(t *testing.T) {
	parser := NewTextParser()

	_, err := parser.Parse(strings.NewReader("   \n\t "))
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestRegistryDispatchByExtension(t *testing.T) {
	registry := NewRegistry()

	for _, name := range []string{"notes.txt", "README.md", "guide.markdown", "paper.PDF"} {
		require.True(t, registry.Supported(name), name)
	}
	require.False(t, registry.Supported("image.png"))
	require.False(t, registry.Supported("archive"))

	text, err := registry.Extract("notes.txt", strings.NewReader("some plain text"))
	require.NoError(t, err)
	require.Equal(t, "some plain text", text)
}

func TestRegistryUnsupportedType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Extract("diagram.svg", strings.NewReader("<svg/>"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRegistryRegisterOverride(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&upperParser{})

	text, err := registry.Extract("a.txt", strings.NewReader("abc"))
	require.NoError(t, err)
	require.Equal(t, "ABC", text)
}

type upperParser struct{}

func (upperParser) Parse(reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(string(data)), nil
}

func (upperParser) Extensions() []string { return []string{".txt"} }
