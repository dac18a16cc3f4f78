package wpa

import (
	"crypto/aes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"fmt"

	"github.com/aead/cmac"
	"golang.org/x/crypto/pbkdf2"
)

const (
	PMKLength = 32
	MICLength = 16
	KCKLength = 16

	// PBKDF2 parameters fixed by IEEE 802.11i.
	pbkdf2Iterations = 4096

	MinPassphraseLen = 8
	MaxPassphraseLen = 63
	MinSSIDLen       = 1
	MaxSSIDLen       = 32
)

// Key descriptor versions carried in the EAPOL Key Information field.
const (
	KeyDescriptorHMACMD5  = 1 // WPA / TKIP
	KeyDescriptorHMACSHA1 = 2 // WPA2 / CCMP
	KeyDescriptorAESCMAC  = 3 // 802.11w / PMF
)

// CipherVariant selects the PTK length: PRF-384 for CCMP, PRF-512 for TKIP.
type CipherVariant int

const (
	VariantCCMP CipherVariant = iota
	VariantTKIP
)

func (v CipherVariant) String() string {
	if v == VariantTKIP {
		return "TKIP"
	}
	return "CCMP"
}

// PTKLength returns the derived key length for the variant.
func (v CipherVariant) PTKLength() int {
	if v == VariantTKIP {
		return 64
	}
	return 48
}

// VariantForDescriptor maps a key descriptor version to the pairwise cipher
// it implies. Version 1 is the legacy TKIP descriptor, 2 and 3 are CCMP.
func VariantForDescriptor(version int) CipherVariant {
	if version == KeyDescriptorHMACMD5 {
		return VariantTKIP
	}
	return VariantCCMP
}

// DerivePMK generates the Pairwise Master Key from a passphrase and SSID
// using PBKDF2-SHA1 with 4096 iterations as defined in IEEE 802.11i.
func DerivePMK(passphrase, ssid string) ([]byte, error) {
	if len(passphrase) < MinPassphraseLen || len(passphrase) > MaxPassphraseLen {
		return nil, fmt.Errorf("%w: passphrase must be %d-%d bytes, got %d",
			ErrInvalidArgument, MinPassphraseLen, MaxPassphraseLen, len(passphrase))
	}
	if len(ssid) < MinSSIDLen || len(ssid) > MaxSSIDLen {
		return nil, fmt.Errorf("%w: ssid must be %d-%d bytes, got %d",
			ErrInvalidArgument, MinSSIDLen, MaxSSIDLen, len(ssid))
	}
	return pbkdf2.Key([]byte(passphrase), []byte(ssid), pbkdf2Iterations, PMKLength, sha1.New), nil
}

// DerivePTK generates the Pairwise Transient Key from the PMK, the two MAC
// addresses and the two handshake nonces, using the PRF-384/512 function from
// IEEE 802.11i. The min/max ordering makes the derivation symmetric: both
// handshake parties compute the same PTK regardless of role.
func DerivePTK(pmk []byte, apMac, staMac [6]byte, aNonce, sNonce [32]byte, variant CipherVariant) ([]byte, error) {
	if len(pmk) != PMKLength {
		return nil, fmt.Errorf("%w: pmk must be %d bytes, got %d", ErrInvalidArgument, PMKLength, len(pmk))
	}

	// min(AA,SPA) || max(AA,SPA) || min(ANonce,SNonce) || max(ANonce,SNonce)
	var data [76]byte

	if bytesLess(apMac[:], staMac[:]) {
		copy(data[0:6], apMac[:])
		copy(data[6:12], staMac[:])
	} else {
		copy(data[0:6], staMac[:])
		copy(data[6:12], apMac[:])
	}

	if bytesLess(aNonce[:], sNonce[:]) {
		copy(data[12:44], aNonce[:])
		copy(data[44:76], sNonce[:])
	} else {
		copy(data[12:44], sNonce[:])
		copy(data[44:76], aNonce[:])
	}

	return prf(pmk, "Pairwise key expansion", data[:], variant.PTKLength()), nil
}

// ExtractKCK returns the Key Confirmation Key, the first 16 bytes of the PTK.
func ExtractKCK(ptk []byte) []byte {
	return ptk[:KCKLength]
}

// CalculateMIC computes the EAPOL Message Integrity Code over a frame whose
// MIC field has been zeroed. The algorithm is selected by the key descriptor
// version: 1 = HMAC-MD5, 2 = HMAC-SHA1 truncated to 16 bytes, 3 = AES-128-CMAC.
func CalculateMIC(kck, zeroedFrame []byte, version int) ([]byte, error) {
	if len(kck) != KCKLength {
		return nil, fmt.Errorf("%w: kck must be %d bytes, got %d", ErrInvalidArgument, KCKLength, len(kck))
	}

	switch version {
	case KeyDescriptorHMACMD5:
		mac := hmac.New(md5.New, kck)
		mac.Write(zeroedFrame)
		return mac.Sum(nil), nil
	case KeyDescriptorHMACSHA1:
		mac := hmac.New(sha1.New, kck)
		mac.Write(zeroedFrame)
		return mac.Sum(nil)[:MICLength], nil
	case KeyDescriptorAESCMAC:
		block, err := aes.NewCipher(kck)
		if err != nil {
			return nil, fmt.Errorf("aes cipher: %w", err)
		}
		sum, err := cmac.Sum(zeroedFrame, block, block.BlockSize())
		if err != nil {
			return nil, fmt.Errorf("aes-cmac: %w", err)
		}
		return sum, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKeyDescriptor, version)
	}
}

// MICEqual compares two MICs in constant time.
func MICEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// prf implements the PRF-X function from IEEE 802.11i: HMAC-SHA1 in counter
// mode over label || 0x00 || data || counter.
func prf(key []byte, label string, data []byte, length int) []byte {
	nIter := (length + sha1.Size - 1) / sha1.Size
	result := make([]byte, 0, nIter*sha1.Size)

	prefix := append([]byte(label), 0)

	for i := 0; i < nIter; i++ {
		mac := hmac.New(sha1.New, key)
		mac.Write(prefix)
		mac.Write(data)
		mac.Write([]byte{byte(i)})
		result = mac.Sum(result)
	}

	return result[:length]
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] < b[i] {
			return true
		}
		if a[i] > b[i] {
			return false
		}
	}
	return false
}
