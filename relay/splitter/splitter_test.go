package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitter_YieldsDataPayloads(t *testing.T) {
	input := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\ndata: [DONE]\n"
	s := New(strings.NewReader(input))

	first, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, `{"a":1}`, first)

	second, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, `{"a":2}`, second)

	third, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, "[DONE]", third)

	_, ok = s.Next()
	require.False(t, ok)
	require.NoError(t, s.Err())
}

func TestSplitter_SkipsNonDataLines(t *testing.T) {
	input := "event: message\n: heartbeat\ndata: {\"x\":true}\n"
	s := New(strings.NewReader(input))

	payload, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, `{"x":true}`, payload)
}

func TestSplitter_TolerantOfMissingSpaceAfterColon(t *testing.T) {
	s := New(strings.NewReader("data:{\"a\":1}\n"))

	payload, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, `{"a":1}`, payload)
}
