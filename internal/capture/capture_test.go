package capture

import (
	"net"
	"strings"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpacrack/wpacrack/pkg/wpa"
)

func mac(s string) net.HardwareAddr {
	hw, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return hw
}

func TestExtractAddresses(t *testing.T) {
	ap := "aa:bb:cc:dd:ee:ff"
	sta := "11:22:33:44:55:66"

	tests := []struct {
		name       string
		flags      layers.Dot11Flags
		a1, a2, a3 string
		wantBSSID  string
		wantClient string
	}{
		{"to-ds station to ap", layers.Dot11FlagsToDS, ap, sta, ap, ap, sta},
		{"from-ds ap to station", layers.Dot11FlagsFromDS, sta, ap, ap, ap, sta},
		{"ibss neither flag", 0, sta, sta, ap, ap, sta},
		{"wds both flags", layers.Dot11FlagsToDS | layers.Dot11FlagsFromDS, ap, sta, ap, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot11 := &layers.Dot11{
				Flags:    tt.flags,
				Address1: mac(tt.a1),
				Address2: mac(tt.a2),
				Address3: mac(tt.a3),
			}
			bssid, client := extractAddresses(dot11)
			assert.Equal(t, tt.wantBSSID, bssid)
			assert.Equal(t, tt.wantClient, client)
		})
	}
}

func completePair() *pairState {
	anonce := make([]byte, 32)
	snonce := make([]byte, 32)
	mic := make([]byte, 16)
	for i := range anonce {
		anonce[i] = 0xe0
		snonce[i] = 0xc0
	}
	for i := range mic {
		mic[i] = 0xd0
	}
	frame, _ := wpa.ReconstructMessage2(wpa.KeyDescriptorHMACSHA1, [32]byte{})
	return &pairState{
		bssid:     "aa:bb:cc:dd:ee:ff",
		clientMAC: "11:22:33:44:55:66",
		anonce:    anonce,
		snonce:    snonce,
		mic:       mic,
		m2Frame:   frame,
		keyVer:    wpa.KeyDescriptorHMACSHA1,
		haveM1:    true,
		haveM2:    true,
	}
}

func TestHandshakesFromCompletePair(t *testing.T) {
	state := &ScanState{
		pairs: map[string]*pairState{"k": completePair()},
		ssids: map[string]string{"aa:bb:cc:dd:ee:ff": "HomeNet"},
	}

	require.True(t, state.HasCompleteHandshake())
	assert.Equal(t, 1, state.PairCount())

	handshakes := state.Handshakes("")
	require.Len(t, handshakes, 1)

	hs := handshakes[0]
	assert.Equal(t, "HomeNet", hs.SSID)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", hs.BSSID)
	assert.Equal(t, "11:22:33:44:55:66", hs.StationMAC)
	assert.Equal(t, strings.Repeat("e0", 32), hs.ANonce)
	assert.Equal(t, strings.Repeat("c0", 32), hs.SNonce)
	assert.Equal(t, strings.Repeat("d0", 16), hs.MIC)
	assert.Equal(t, wpa.KeyDescriptorHMACSHA1, hs.KeyDescriptorVersion)

	// The emitted record must survive the downstream validation gate.
	_, err := hs.Parse()
	assert.NoError(t, err)
}

func TestHandshakesSSIDOverrideWins(t *testing.T) {
	state := &ScanState{
		pairs: map[string]*pairState{"k": completePair()},
		ssids: map[string]string{"aa:bb:cc:dd:ee:ff": "FromBeacon"},
	}

	handshakes := state.Handshakes("Forced")
	require.Len(t, handshakes, 1)
	assert.Equal(t, "Forced", handshakes[0].SSID)
}

func TestHandshakesSkipsIncompletePairs(t *testing.T) {
	partial := completePair()
	partial.haveM2 = false

	state := &ScanState{
		pairs: map[string]*pairState{"k": partial},
		ssids: map[string]string{},
	}

	assert.False(t, state.HasCompleteHandshake())
	assert.Equal(t, 1, state.PairCount())
	assert.Empty(t, state.Handshakes(""))
}

func TestLoadHandshakeMissingFile(t *testing.T) {
	_, err := LoadHandshake("/nonexistent/capture.cap", "", "")
	assert.Error(t, err)
}
