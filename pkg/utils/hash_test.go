package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint([]string{"name", "color"})
	require.NoError(t, err)
	b, err := Fingerprint([]string{"name", "color"})
	require.NoError(t, err)
	c, err := Fingerprint([]string{"color", "name"})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestFingerprintUnsupported(t *testing.T) {
	_, err := Fingerprint(make(chan int))
	require.Error(t, err)
}
