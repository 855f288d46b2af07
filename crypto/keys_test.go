package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, string(CorePrefix)+"1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
	require.Equal(t, CorePrefix, decoded.Prefix())
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	_, err := NewAddress(CorePrefix, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Bytes(), restored.PubKey().Address().Bytes())
}
