package wpa

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FrameSource records whether the frame being verified was captured off the
// air or reconstructed from handshake parameters. Reconstructed frames carry
// a zeroed replay counter and empty key data, so a match against one is a
// lower-confidence result.
type FrameSource int

const (
	FrameCaptured FrameSource = iota
	FrameReconstructed
)

func (s FrameSource) String() string {
	if s == FrameReconstructed {
		return "reconstructed"
	}
	return "captured"
}

// Handshake is the input record produced by a capture collaborator. All byte
// fields are hex strings with optional ':' or space separators. The record is
// read-only once constructed; Parse validates every field before any
// cryptographic operation can run.
type Handshake struct {
	SSID                 string
	BSSID                string
	StationMAC           string
	ANonce               string
	SNonce               string
	MIC                  string
	EAPOLFrame           string // optional full Message-2 frame
	KeyDescriptorVersion int
}

// ParsedHandshake holds the normalized byte fields derived once per crack
// session. FrameToHash already has its MIC field zeroed.
type ParsedHandshake struct {
	SSID        string
	BSSID       [6]byte
	StationMAC  [6]byte
	ANonce      [32]byte
	SNonce      [32]byte
	MIC         [16]byte
	FrameToHash []byte
	MICOffset   int
	Source      FrameSource
	Version     int
	Variant     CipherVariant
}

// Parse validates the handshake and normalizes it into byte form. An invalid
// handshake never reaches the compute engine: any malformed field fails here
// with ErrInvalidArgument (or ErrUnsupportedKeyDescriptor / ErrFrameTooShort).
func (h *Handshake) Parse() (*ParsedHandshake, error) {
	if len(h.SSID) < MinSSIDLen || len(h.SSID) > MaxSSIDLen {
		return nil, fmt.Errorf("%w: ssid must be %d-%d bytes, got %d",
			ErrInvalidArgument, MinSSIDLen, MaxSSIDLen, len(h.SSID))
	}
	if h.KeyDescriptorVersion < KeyDescriptorHMACMD5 || h.KeyDescriptorVersion > KeyDescriptorAESCMAC {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKeyDescriptor, h.KeyDescriptorVersion)
	}

	p := &ParsedHandshake{
		SSID:    h.SSID,
		Version: h.KeyDescriptorVersion,
		Variant: VariantForDescriptor(h.KeyDescriptorVersion),
	}

	if err := decodeFixed(h.BSSID, "bssid", p.BSSID[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed(h.StationMAC, "station mac", p.StationMAC[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed(h.ANonce, "anonce", p.ANonce[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed(h.SNonce, "snonce", p.SNonce[:]); err != nil {
		return nil, err
	}
	if err := decodeFixed(h.MIC, "mic", p.MIC[:]); err != nil {
		return nil, err
	}

	if h.EAPOLFrame != "" {
		raw, err := DecodeHex(h.EAPOLFrame)
		if err != nil {
			return nil, fmt.Errorf("%w: eapol frame: %v", ErrInvalidArgument, err)
		}
		zeroed, err := ZeroMICCopy(raw)
		if err != nil {
			return nil, err
		}
		p.FrameToHash = zeroed
		p.Source = FrameCaptured
	} else {
		frame, err := ReconstructMessage2(h.KeyDescriptorVersion, p.SNonce)
		if err != nil {
			return nil, err
		}
		p.FrameToHash = frame
		p.Source = FrameReconstructed
	}
	p.MICOffset = MICOffset

	return p, nil
}

// DecodeHex decodes a hex string, tolerating ':', '-' and space separators.
func DecodeHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', ' ', '\t':
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(clean)
}

func decodeFixed(s, field string, dst []byte) error {
	raw, err := DecodeHex(s)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, field, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidArgument, field, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
