package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortedCompact(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"timestamp":  int64(1700000000),
		"event_type": EventSpam,
		"proof":      []byte{0x01, 0x02},
		"created":    true,
		"steps":      []any{"a", 1},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"created":true,"event_type":1,"proof":"0102","steps":["a",1],"timestamp":1700000000}`, string(got))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00, which sorts before
	// U+E000 by code unit even though it is the larger code point.
	got, err := MarshalCanonical(map[string]any{"\ue000": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\ue000\":1}", string(got))
}

func TestMarshalCanonicalEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a&b>\"\\\n\u0001 ")
	require.NoError(t, err)
	assert.Equal(t, "\"<a&b>\\\"\\\\\\n\\u0001 \"", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	a, err := MarshalCanonical("caf\u00e9")
	require.NoError(t, err)
	b, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": []any{nil}})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
