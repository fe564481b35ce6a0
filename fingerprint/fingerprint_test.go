package fingerprint_test

import (
	"bytes"
	"testing"

	"github.com/paper-guides/backend/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfKnownVectors(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		fingerprint.Of(nil))
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		fingerprint.Of([]byte("abc")))
}

func TestOfIsDeterministic(t *testing.T) {
	blob := bytes.Repeat([]byte{0x25, 0x50, 0x44, 0x46}, 4096)
	first := fingerprint.Of(blob)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, fingerprint.Of(append([]byte(nil), blob...)))
	}
	assert.Len(t, first, fingerprint.Size)
}

func TestOfDistinguishesInputs(t *testing.T) {
	seen := map[string][]byte{}
	for i := 0; i < 256; i++ {
		blob := []byte{byte(i)}
		fp := fingerprint.Of(blob)
		_, dup := seen[fp]
		require.False(t, dup, "collision for byte %d", i)
		seen[fp] = blob
	}
	assert.NotEqual(t, fingerprint.Of([]byte("a")), fingerprint.Of([]byte("a\x00")))
}

func TestShort(t *testing.T) {
	fp := fingerprint.Of([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01", fingerprint.Short(fp))
	assert.Equal(t, "abc", fingerprint.Short("abc"))
}
