package wpa

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDerivePMKGoldenVectors(t *testing.T) {
	// IEEE 802.11i Annex H PBKDF2 test vectors.
	tests := []struct {
		name       string
		passphrase string
		ssid       string
		pmk        string
	}{
		{
			name:       "ieee annex vector 1",
			passphrase: "password",
			ssid:       "IEEE",
			pmk:        "f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e",
		},
		{
			name:       "ieee annex vector 2",
			passphrase: "ThisIsAPassword",
			ssid:       "ThisIsASSID",
			pmk:        "0dc0d6eb90555ed6419756b9a15ec3e3209b63df707dd508d14581f8982721af",
		},
		{
			name:       "maximum length passphrase and ssid",
			passphrase: strings.Repeat("a", 63),
			ssid:       strings.Repeat("Z", 32),
			pmk:        "2d43d0dabfdd635377172efa1fc4b4b87dbfc4219193909ded9a7cfb89a3097b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pmk, err := DerivePMK(tt.passphrase, tt.ssid)
			require.NoError(t, err)
			assert.Equal(t, tt.pmk, hex.EncodeToString(pmk))
			assert.Len(t, pmk, PMKLength)
		})
	}
}

func TestDerivePMKDeterministic(t *testing.T) {
	a, err := DerivePMK("correcthorse", "HomeNetwork")
	require.NoError(t, err)
	b, err := DerivePMK("correcthorse", "HomeNetwork")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// A different SSID must produce a different PMK for the same passphrase.
	c, err := DerivePMK("correcthorse", "OtherNetwork")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDerivePMKValidation(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		ssid       string
	}{
		{"passphrase too short", "short12", "IEEE"},
		{"passphrase too long", strings.Repeat("x", 64), "IEEE"},
		{"ssid empty", "password", ""},
		{"ssid too long", "password", strings.Repeat("s", 33)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pmk, err := DerivePMK(tt.passphrase, tt.ssid)
			assert.Nil(t, pmk)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	// Boundary lengths are accepted.
	_, err := DerivePMK(strings.Repeat("p", 8), "x")
	assert.NoError(t, err)
	_, err = DerivePMK(strings.Repeat("p", 63), strings.Repeat("s", 32))
	assert.NoError(t, err)
}

func TestDerivePTK(t *testing.T) {
	pmk := fromHex(t, "0dc0d6eb90555ed6419756b9a15ec3e3209b63df707dd508d14581f8982721af")
	apMac := [6]byte{0xa0, 0xa1, 0xa1, 0xa3, 0xa4, 0xa5}
	staMac := [6]byte{0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5}

	var aNonce, sNonce [32]byte
	for i := range aNonce {
		aNonce[i] = byte(0xe0 + i)
		sNonce[i] = byte(0xc0 + i)
	}

	ptk, err := DerivePTK(pmk, apMac, staMac, aNonce, sNonce, VariantCCMP)
	require.NoError(t, err)
	assert.Equal(t,
		"e79498d36bd81b9b41819b48f3c97f966e620972f3d263238df571d65fa2b8fad503e8b5891f81c74422468fc2d4dd39",
		hex.EncodeToString(ptk))

	ptk512, err := DerivePTK(pmk, apMac, staMac, aNonce, sNonce, VariantTKIP)
	require.NoError(t, err)
	assert.Len(t, ptk512, 64)
	// PRF-512 extends PRF-384; the shared prefix must agree.
	assert.Equal(t, ptk, ptk512[:48])
}

func TestDerivePTKRoleSymmetric(t *testing.T) {
	pmk := fromHex(t, "f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e")
	apMac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	staMac := [6]byte{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb}

	var aNonce, sNonce [32]byte
	for i := range aNonce {
		aNonce[i] = byte(i)
		sNonce[i] = byte(255 - i)
	}

	fromAP, err := DerivePTK(pmk, apMac, staMac, aNonce, sNonce, VariantCCMP)
	require.NoError(t, err)

	// Swapping the MAC arguments or the nonce arguments must not change the
	// derivation: both handshake parties arrive at the same PTK.
	fromSTA, err := DerivePTK(pmk, staMac, apMac, sNonce, aNonce, VariantCCMP)
	require.NoError(t, err)
	assert.Equal(t, fromAP, fromSTA)
}

func TestDerivePTKRejectsBadPMK(t *testing.T) {
	_, err := DerivePTK(make([]byte, 16), [6]byte{}, [6]byte{}, [32]byte{}, [32]byte{}, VariantCCMP)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestExtractKCK(t *testing.T) {
	ptk := fromHex(t, "e79498d36bd81b9b41819b48f3c97f966e620972f3d263238df571d65fa2b8fad503e8b5891f81c74422468fc2d4dd39")
	assert.Equal(t, "e79498d36bd81b9b41819b48f3c97f96", hex.EncodeToString(ExtractKCK(ptk)))
}

func TestCalculateMIC(t *testing.T) {
	kck := fromHex(t, "e79498d36bd81b9b41819b48f3c97f96")
	frame := fromHex(t,
		"0203005f02010a00000000000000000000"+
			"c0c1c2c3c4c5c6c7c8c9cacbcccdcecfd0d1d2d3d4d5d6d7d8d9dadbdcdddedf"+
			strings.Repeat("00", 50))
	require.Len(t, frame, 99)

	v1, err := CalculateMIC(kck, frame, KeyDescriptorHMACMD5)
	require.NoError(t, err)
	assert.Equal(t, "cac4bc1b42eb06b2354812e98cf9ed78", hex.EncodeToString(v1))

	v2, err := CalculateMIC(kck, frame, KeyDescriptorHMACSHA1)
	require.NoError(t, err)
	assert.Equal(t, "01c242cf5f0e3ee669445d9cf5793166", hex.EncodeToString(v2))
}

func TestCalculateMICAESCMAC(t *testing.T) {
	// RFC 4493 example 2: AES-128 key and a single-block message.
	kck := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	msg := fromHex(t, "6bc1bee22e409f96e93d7e117393172a")

	mic, err := CalculateMIC(kck, msg, KeyDescriptorAESCMAC)
	require.NoError(t, err)
	assert.Equal(t, "070a16b46b4d4144f79bdd9dd04a287c", hex.EncodeToString(mic))
}

func TestCalculateMICUnsupportedVersion(t *testing.T) {
	kck := make([]byte, KCKLength)
	for _, version := range []int{0, 4, 7, 255} {
		_, err := CalculateMIC(kck, make([]byte, 99), version)
		assert.ErrorIs(t, err, ErrUnsupportedKeyDescriptor, "version %d", version)
	}

	_, err := CalculateMIC(make([]byte, 8), make([]byte, 99), KeyDescriptorHMACSHA1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMICEqual(t *testing.T) {
	a := fromHex(t, "cac4bc1b42eb06b2354812e98cf9ed78")
	b := fromHex(t, "cac4bc1b42eb06b2354812e98cf9ed78")
	assert.True(t, MICEqual(a, b))

	b[15] ^= 0x01
	assert.False(t, MICEqual(a, b))
	assert.False(t, MICEqual(a, a[:15]))
}

func TestVariantForDescriptor(t *testing.T) {
	assert.Equal(t, VariantTKIP, VariantForDescriptor(KeyDescriptorHMACMD5))
	assert.Equal(t, VariantCCMP, VariantForDescriptor(KeyDescriptorHMACSHA1))
	assert.Equal(t, VariantCCMP, VariantForDescriptor(KeyDescriptorAESCMAC))
	assert.Equal(t, 64, VariantTKIP.PTKLength())
	assert.Equal(t, 48, VariantCCMP.PTKLength())
}
