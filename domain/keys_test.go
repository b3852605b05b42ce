package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testAddress = "0x00112233445566778899aabbccddeeff00112233"

func TestKeys(t *testing.T) {
	require.Equal(t, "42", AuctionKey(42))
	require.Equal(t, "42_"+testAddress, ParticipantKey(42, testAddress))
	require.Equal(t, "42_3", RuneKey(42, 3))
	require.Equal(t, "42_17", MessageKey(42, 17))
}

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0x00112233445566778899AABBCCDDEEFF00112233")
	require.NoError(t, err)
	require.Equal(t, testAddress, addr)
}

func TestNormalizeAddressRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"0x1234",
		"00112233445566778899aabbccddeeff00112233",
		"0x00112233445566778899aabbccddeeff0011223g",
		"0x00112233445566778899aabbccddeeff001122334",
	}

	for _, input := range malformed {
		_, err := NormalizeAddress(input)
		require.Error(t, err, "expected %q to be rejected", input)
	}
}
