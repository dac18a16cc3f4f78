package wpa

import (
	"encoding/binary"
	"fmt"
)

const (
	EAPOLVersion1 = 1
	EAPOLVersion2 = 2
	EAPOLTypeKey  = 3

	// Key descriptor types (first byte of the EAPOL-Key body).
	DescriptorTypeWPA = 0xFE
	DescriptorTypeRSN = 0x02

	EAPOLKeyInfoVersionMask = 0x0007
	EAPOLKeyInfoPairwise    = 0x0008
	EAPOLKeyInfoInstall     = 0x0040
	EAPOLKeyInfoACK         = 0x0080
	EAPOLKeyInfoMIC         = 0x0100
	EAPOLKeyInfoSecure      = 0x0200

	// MICOffset is the byte offset of the MIC field within a full EAPOL
	// frame: 4 bytes of EAPOL header, then Descriptor Type (1) + Key
	// Information (2) + Key Length (2) + Replay Counter (8) + Key Nonce (32)
	// + Key IV (16) + Key RSC (8) + Key ID (8) = 77 bytes of key descriptor.
	MICOffset = 4 + 77

	// eapolKeyBodyLen is the fixed-size EAPOL-Key body up to and including
	// the Key Data Length field.
	eapolKeyBodyLen = 95

	minKeyFrameLen = 99 // header + fixed body
)

// EAPOLKeyFrame is a parsed EAPOL-Key frame (header plus key descriptor).
type EAPOLKeyFrame struct {
	Version        uint8
	Type           uint8
	Length         uint16
	DescriptorType uint8
	KeyInfo        uint16
	KeyLength      uint16
	ReplayCounter  uint64
	Nonce          [32]byte
	IV             [16]byte
	RSC            [8]byte
	ID             [8]byte
	MIC            [16]byte
	DataLength     uint16
	Data           []byte
}

// KeyDescriptorVersion extracts the version bits from Key Information.
func (f *EAPOLKeyFrame) KeyDescriptorVersion() int {
	return int(f.KeyInfo & EAPOLKeyInfoVersionMask)
}

// HandshakeMessage identifies a frame's position in the 4-way exchange.
type HandshakeMessage int

const (
	HandshakeMsgUnknown HandshakeMessage = 0
	HandshakeMsg1       HandshakeMessage = 1
	HandshakeMsg2       HandshakeMessage = 2
	HandshakeMsg3       HandshakeMessage = 3
	HandshakeMsg4       HandshakeMessage = 4
)

func (h HandshakeMessage) String() string {
	switch h {
	case HandshakeMsg1:
		return "M1"
	case HandshakeMsg2:
		return "M2"
	case HandshakeMsg3:
		return "M3"
	case HandshakeMsg4:
		return "M4"
	default:
		return "Unknown"
	}
}

// ParseEAPOLKeyFrame decodes a full EAPOL frame (header included).
func ParseEAPOLKeyFrame(data []byte) (*EAPOLKeyFrame, error) {
	if len(data) < minKeyFrameLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}

	frame := &EAPOLKeyFrame{
		Version:        data[0],
		Type:           data[1],
		Length:         binary.BigEndian.Uint16(data[2:4]),
		DescriptorType: data[4],
		KeyInfo:        binary.BigEndian.Uint16(data[5:7]),
		KeyLength:      binary.BigEndian.Uint16(data[7:9]),
		ReplayCounter:  binary.BigEndian.Uint64(data[9:17]),
	}

	copy(frame.Nonce[:], data[17:49])
	copy(frame.IV[:], data[49:65])
	copy(frame.RSC[:], data[65:73])
	copy(frame.ID[:], data[73:81])
	copy(frame.MIC[:], data[81:97])

	frame.DataLength = binary.BigEndian.Uint16(data[97:99])
	if len(data) > minKeyFrameLen {
		frame.Data = data[minKeyFrameLen:]
	}

	return frame, nil
}

// MessageNumber classifies the frame within the 4-way handshake using the
// ACK/MIC/Install/Secure bits and the nonce.
func (f *EAPOLKeyFrame) MessageNumber() HandshakeMessage {
	hasACK := f.KeyInfo&EAPOLKeyInfoACK != 0
	hasMIC := f.KeyInfo&EAPOLKeyInfoMIC != 0
	hasInstall := f.KeyInfo&EAPOLKeyInfoInstall != 0
	hasSecure := f.KeyInfo&EAPOLKeyInfoSecure != 0

	isNonceZero := true
	for _, b := range f.Nonce {
		if b != 0 {
			isNonceZero = false
			break
		}
	}

	switch {
	case hasACK && !hasMIC && !hasInstall:
		return HandshakeMsg1
	case !hasACK && hasMIC && !hasInstall && !isNonceZero:
		return HandshakeMsg2
	case hasACK && hasMIC && hasInstall:
		return HandshakeMsg3
	case !hasACK && hasMIC && !hasInstall && hasSecure && isNonceZero:
		return HandshakeMsg4
	default:
		return HandshakeMsgUnknown
	}
}

// ZeroMICCopy returns a copy of the frame with the 16 MIC bytes at MICOffset
// set to zero. The input is never mutated; the returned frame is what the MIC
// is computed over.
func ZeroMICCopy(frame []byte) ([]byte, error) {
	if MICOffset+MICLength > len(frame) {
		return nil, fmt.Errorf("%w: need %d bytes for MIC at offset %d, frame is %d",
			ErrFrameTooShort, MICLength, MICOffset, len(frame))
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	for i := MICOffset; i < MICOffset+MICLength; i++ {
		out[i] = 0
	}
	return out, nil
}

// ReconstructMessage2 builds a minimal, standards-shaped EAPOL-Key Message 2
// for a capture that carried only the handshake parameters and not the raw
// frame. The replay counter and key data are unknowable from the parameters
// alone, so they are left zero: verification against a reconstructed frame is
// lower-confidence than against a captured one.
func ReconstructMessage2(keyDescriptorVersion int, sNonce [32]byte) ([]byte, error) {
	if keyDescriptorVersion < KeyDescriptorHMACMD5 || keyDescriptorVersion > KeyDescriptorAESCMAC {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKeyDescriptor, keyDescriptorVersion)
	}

	frame := make([]byte, 4+eapolKeyBodyLen)

	version := byte(EAPOLVersion2)
	descriptor := byte(DescriptorTypeRSN)
	if keyDescriptorVersion == KeyDescriptorHMACMD5 {
		version = EAPOLVersion1
		descriptor = DescriptorTypeWPA
	}

	frame[0] = version
	frame[1] = EAPOLTypeKey
	binary.BigEndian.PutUint16(frame[2:4], eapolKeyBodyLen)

	frame[4] = descriptor
	keyInfo := uint16(keyDescriptorVersion) | EAPOLKeyInfoPairwise | EAPOLKeyInfoMIC
	binary.BigEndian.PutUint16(frame[5:7], keyInfo)
	// Key Length, Replay Counter, IV, RSC, ID, MIC and Key Data Length all
	// stay zero in the reconstruction.
	copy(frame[17:49], sNonce[:])

	return frame, nil
}
