// Package capture extracts 4-way-handshake parameters from pcap files. It is
// the capture-collaborator side of the engine's input contract: whatever the
// radio produced, what comes out of here is a validated-shape Handshake
// record with hex-encoded fields.
package capture

import (
	"encoding/hex"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/wpacrack/wpacrack/pkg/wpa"
)

// pairState accumulates the frames seen for one AP/client pair.
type pairState struct {
	bssid     string
	clientMAC string

	anonce  []byte
	snonce  []byte
	mic     []byte
	m2Frame []byte
	keyVer  int
	haveM1  bool
	haveM2  bool
}

func (p *pairState) complete() bool {
	return p.haveM1 && p.haveM2
}

// ScanState is the outcome of scanning one capture file.
type ScanState struct {
	pairs map[string]*pairState
	ssids map[string]string // bssid -> essid from beacons
}

// ScanFile reads a pcap and collects handshake material per AP/client pair,
// optionally filtered to one BSSID.
func ScanFile(capFile, targetBSSID string) (*ScanState, error) {
	handle, err := pcap.OpenOffline(capFile)
	if err != nil {
		return nil, fmt.Errorf("open cap file: %w", err)
	}
	defer handle.Close()

	state := &ScanState{
		pairs: make(map[string]*pairState),
		ssids: make(map[string]string),
	}

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range source.Packets() {
		dot11Layer := packet.Layer(layers.LayerTypeDot11)
		if dot11Layer == nil {
			continue
		}
		dot11 := dot11Layer.(*layers.Dot11)

		if essid, bssid, ok := beaconSSID(packet, dot11); ok {
			state.ssids[bssid] = essid
			continue
		}

		if packet.Layer(layers.LayerTypeEAPOLKey) == nil {
			continue
		}

		bssid, clientMAC := extractAddresses(dot11)
		if bssid == "" {
			continue
		}
		if targetBSSID != "" && bssid != targetBSSID {
			continue
		}

		eapol := packet.Layer(layers.LayerTypeEAPOL)
		if eapol == nil {
			continue
		}
		fullFrame := append(eapol.LayerContents(), eapol.LayerPayload()...)

		frame, err := wpa.ParseEAPOLKeyFrame(fullFrame)
		if err != nil {
			continue
		}

		key := bssid + "-" + clientMAC
		pair, ok := state.pairs[key]
		if !ok {
			pair = &pairState{bssid: bssid, clientMAC: clientMAC}
			state.pairs[key] = pair
		}

		switch frame.MessageNumber() {
		case wpa.HandshakeMsg1:
			pair.anonce = frame.Nonce[:]
			pair.haveM1 = true
		case wpa.HandshakeMsg2:
			pair.snonce = frame.Nonce[:]
			pair.mic = frame.MIC[:]
			pair.m2Frame = make([]byte, len(fullFrame))
			copy(pair.m2Frame, fullFrame)
			pair.keyVer = frame.KeyDescriptorVersion()
			pair.haveM2 = true
		case wpa.HandshakeMsg3:
			// M3 repeats the ANonce; useful when M1 was missed.
			if !pair.haveM1 {
				pair.anonce = frame.Nonce[:]
				pair.haveM1 = true
			}
		}
	}

	return state, nil
}

// Handshakes returns one Handshake record per complete AP/client pair. The
// SSID comes from beacons in the same capture; ssidOverride wins when the
// capture was stripped of beacons.
func (s *ScanState) Handshakes(ssidOverride string) []*wpa.Handshake {
	var out []*wpa.Handshake
	for _, pair := range s.pairs {
		if !pair.complete() {
			continue
		}

		ssid := ssidOverride
		if ssid == "" {
			ssid = s.ssids[pair.bssid]
		}

		out = append(out, &wpa.Handshake{
			SSID:                 ssid,
			BSSID:                pair.bssid,
			StationMAC:           pair.clientMAC,
			ANonce:               hex.EncodeToString(pair.anonce),
			SNonce:               hex.EncodeToString(pair.snonce),
			MIC:                  hex.EncodeToString(pair.mic),
			EAPOLFrame:           hex.EncodeToString(pair.m2Frame),
			KeyDescriptorVersion: pair.keyVer,
		})
	}
	return out
}

// HasCompleteHandshake reports whether any pair captured both M1 and M2.
func (s *ScanState) HasCompleteHandshake() bool {
	for _, pair := range s.pairs {
		if pair.complete() {
			return true
		}
	}
	return false
}

// PairCount returns the number of AP/client pairs with any EAPOL traffic.
func (s *ScanState) PairCount() int {
	return len(s.pairs)
}

// LoadHandshake scans a capture and returns the first complete handshake, or
// an error naming what was missing.
func LoadHandshake(capFile, bssid, ssid string) (*wpa.Handshake, error) {
	state, err := ScanFile(capFile, bssid)
	if err != nil {
		return nil, err
	}

	handshakes := state.Handshakes(ssid)
	if len(handshakes) == 0 {
		return nil, fmt.Errorf("no complete handshake in %s (need M1+M2, saw %d EAPOL pairs)",
			capFile, state.PairCount())
	}

	hs := handshakes[0]
	if hs.SSID == "" {
		return nil, fmt.Errorf("no beacon for %s in %s; pass the SSID explicitly", hs.BSSID, capFile)
	}
	return hs, nil
}

func beaconSSID(packet gopacket.Packet, dot11 *layers.Dot11) (essid, bssid string, ok bool) {
	if dot11.Type != layers.Dot11TypeMgmtBeacon {
		return "", "", false
	}
	for _, l := range packet.Layers() {
		if ie, isIE := l.(*layers.Dot11InformationElement); isIE {
			if ie.ID == layers.Dot11InformationElementIDSSID && len(ie.Info) > 0 {
				return string(ie.Info), dot11.Address3.String(), true
			}
		}
	}
	return "", "", false
}

func extractAddresses(dot11 *layers.Dot11) (bssid, client string) {
	switch {
	case dot11.Flags.ToDS() && !dot11.Flags.FromDS():
		return dot11.Address1.String(), dot11.Address2.String()
	case !dot11.Flags.ToDS() && dot11.Flags.FromDS():
		return dot11.Address2.String(), dot11.Address1.String()
	case !dot11.Flags.ToDS() && !dot11.Flags.FromDS():
		return dot11.Address3.String(), dot11.Address2.String()
	default:
		return "", ""
	}
}
