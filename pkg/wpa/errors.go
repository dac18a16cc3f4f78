package wpa

import "errors"

// Error taxonomy for handshake validation and key derivation. All of these
// surface to the caller as a CrackResult error, never as a panic.
var (
	// ErrInvalidArgument covers malformed hex, wrong field lengths and
	// out-of-range passphrase/SSID sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedKeyDescriptor is returned for key descriptor versions
	// outside 1-3 (WPA3/SAE handshakes are not coverable by this engine).
	ErrUnsupportedKeyDescriptor = errors.New("unsupported key descriptor version")

	// ErrFrameTooShort means the captured EAPOL frame ends before the MIC
	// field the verification needs to zero.
	ErrFrameTooShort = errors.New("EAPOL frame too short")
)
