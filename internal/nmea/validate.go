package nmea

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmpty            = errors.New("nmea: empty sentence")
	ErrNoStartMarker    = errors.New("nmea: missing '$'")
	ErrTooLong          = errors.New("nmea: sentence too long")
	ErrNonPrintable     = errors.New("nmea: non-printable byte")
	ErrChecksumMissing  = errors.New("nmea: missing checksum")
	ErrChecksumMismatch = errors.New("nmea: checksum mismatch")
)

// Validator rejects sentences that are not well-formed NMEA text before they
// reach the decoder. The zero value accepts sentences with or without a
// checksum; RequireChecksum turns on checksum verification.
type Validator struct {
	RequireChecksum bool
}

func (v Validator) Validate(s Sentence) (Sentence, error) {
	if len(s) == 0 {
		return "", ErrEmpty
	}
	if s[0] != startMarker {
		return "", fmt.Errorf("%w: got %q", ErrNoStartMarker, s[0])
	}
	if len(s) == 1 {
		return "", ErrEmpty
	}
	if len(s) > MaxSentenceLen {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLong, len(s))
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7E {
			return "", fmt.Errorf("%w: 0x%02X at offset %d", ErrNonPrintable, c, i)
		}
	}
	if v.RequireChecksum {
		switch verifyChecksum(s) {
		case ChecksumAbsent:
			return "", ErrChecksumMissing
		case ChecksumInvalid:
			return "", ErrChecksumMismatch
		}
	}
	return s, nil
}

// ChecksumState says what the optional "*HH" suffix of a sentence told us.
type ChecksumState int

const (
	ChecksumAbsent ChecksumState = iota
	ChecksumValid
	ChecksumInvalid
)

func (c ChecksumState) String() string {
	switch c {
	case ChecksumValid:
		return "valid"
	case ChecksumInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Checksum is the XOR of every byte of payload, which is the text between
// '$' and '*'.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// splitChecksum returns the payload (without '$') and the checksum text
// after '*', if any.
func splitChecksum(s Sentence) (payload string, ck string, ok bool) {
	body := strings.TrimPrefix(string(s), string(startMarker))
	star := strings.LastIndexByte(body, '*')
	if star == -1 {
		return body, "", false
	}
	return body[:star], strings.TrimSpace(body[star+1:]), true
}

func verifyChecksum(s Sentence) ChecksumState {
	payload, ck, ok := splitChecksum(s)
	if !ok {
		return ChecksumAbsent
	}
	if len(ck) < 2 {
		return ChecksumInvalid
	}
	want, err := hex.DecodeString(ck[:2])
	if err != nil || len(want) != 1 {
		return ChecksumInvalid
	}
	if Checksum(payload) != want[0] {
		return ChecksumInvalid
	}
	return ChecksumValid
}
