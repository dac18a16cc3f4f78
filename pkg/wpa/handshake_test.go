package wpa

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHandshake() *Handshake {
	return &Handshake{
		SSID:                 "TestNet",
		BSSID:                "aa:bb:cc:dd:ee:ff",
		StationMAC:           "11:22:33:44:55:66",
		ANonce:               strings.Repeat("e0", 32),
		SNonce:               strings.Repeat("c0", 32),
		MIC:                  strings.Repeat("d0", 16),
		KeyDescriptorVersion: KeyDescriptorHMACSHA1,
	}
}

func TestHandshakeParse(t *testing.T) {
	parsed, err := validHandshake().Parse()
	require.NoError(t, err)

	assert.Equal(t, "TestNet", parsed.SSID)
	assert.Equal(t, [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, parsed.BSSID)
	assert.Equal(t, [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, parsed.StationMAC)
	assert.Equal(t, byte(0xe0), parsed.ANonce[0])
	assert.Equal(t, byte(0xc0), parsed.SNonce[31])
	assert.Equal(t, byte(0xd0), parsed.MIC[15])
	assert.Equal(t, KeyDescriptorHMACSHA1, parsed.Version)
	assert.Equal(t, VariantCCMP, parsed.Variant)
	assert.Equal(t, MICOffset, parsed.MICOffset)
}

func TestHandshakeParseSeparatorTolerance(t *testing.T) {
	hs := validHandshake()
	hs.BSSID = "AA-BB-CC-DD-EE-FF"
	hs.StationMAC = "11 22 33 44 55 66"
	hs.ANonce = strings.Repeat("e0:", 31) + "e0"

	parsed, err := hs.Parse()
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, parsed.BSSID)
	assert.Equal(t, [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, parsed.StationMAC)
	assert.Equal(t, byte(0xe0), parsed.ANonce[31])
}

func TestHandshakeParseReconstructsMissingFrame(t *testing.T) {
	parsed, err := validHandshake().Parse()
	require.NoError(t, err)

	assert.Equal(t, FrameReconstructed, parsed.Source)
	require.Len(t, parsed.FrameToHash, 99)

	frame, err := ParseEAPOLKeyFrame(parsed.FrameToHash)
	require.NoError(t, err)
	assert.Equal(t, HandshakeMsg2, frame.MessageNumber())
	assert.Equal(t, parsed.SNonce, frame.Nonce)
}

func TestHandshakeParseCapturedFrame(t *testing.T) {
	raw := buildKeyFrame(uint16(KeyDescriptorHMACSHA1)|EAPOLKeyInfoPairwise|EAPOLKeyInfoMIC, testNonce())

	hs := validHandshake()
	hs.EAPOLFrame = hex.EncodeToString(raw)

	parsed, err := hs.Parse()
	require.NoError(t, err)
	assert.Equal(t, FrameCaptured, parsed.Source)
	require.Len(t, parsed.FrameToHash, len(raw))

	// The MIC field inside the frame to hash is already zeroed.
	for i := MICOffset; i < MICOffset+MICLength; i++ {
		assert.Zero(t, parsed.FrameToHash[i], "byte %d", i)
	}
}

func TestHandshakeParseRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Handshake)
		wantErr error
	}{
		{"empty ssid", func(h *Handshake) { h.SSID = "" }, ErrInvalidArgument},
		{"ssid too long", func(h *Handshake) { h.SSID = strings.Repeat("s", 33) }, ErrInvalidArgument},
		{"bssid not hex", func(h *Handshake) { h.BSSID = "zz:bb:cc:dd:ee:ff" }, ErrInvalidArgument},
		{"bssid wrong length", func(h *Handshake) { h.BSSID = "aa:bb:cc:dd:ee" }, ErrInvalidArgument},
		{"anonce truncated", func(h *Handshake) { h.ANonce = strings.Repeat("e0", 31) }, ErrInvalidArgument},
		{"snonce oversized", func(h *Handshake) { h.SNonce = strings.Repeat("c0", 33) }, ErrInvalidArgument},
		{"mic odd hex digits", func(h *Handshake) { h.MIC = strings.Repeat("d", 31) }, ErrInvalidArgument},
		{"version zero", func(h *Handshake) { h.KeyDescriptorVersion = 0 }, ErrUnsupportedKeyDescriptor},
		{"version out of range", func(h *Handshake) { h.KeyDescriptorVersion = 4 }, ErrUnsupportedKeyDescriptor},
		{"eapol frame not hex", func(h *Handshake) { h.EAPOLFrame = "not-hex!" }, ErrInvalidArgument},
		{"eapol frame too short", func(h *Handshake) { h.EAPOLFrame = strings.Repeat("00", 40) }, ErrFrameTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := validHandshake()
			tt.mutate(hs)
			parsed, err := hs.Parse()
			assert.Nil(t, parsed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex("aa:bb-cc dd\tee:ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, b)

	_, err = DecodeHex("xyz")
	assert.Error(t, err)
}

func TestFrameSourceString(t *testing.T) {
	assert.Equal(t, "captured", FrameCaptured.String())
	assert.Equal(t, "reconstructed", FrameReconstructed.String())
}
