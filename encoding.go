package serialport

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names how string payloads are turned into bytes.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf8"
	EncodingLatin1  Encoding = "latin1"
	EncodingUTF16LE Encoding = "utf16le"
	EncodingHex     Encoding = "hex"
	EncodingBase64  Encoding = "base64"
)

// Valid reports whether e is a supported encoding.
func (e Encoding) Valid() bool {
	switch e {
	case EncodingUTF8, EncodingLatin1, EncodingUTF16LE, EncodingHex, EncodingBase64:
		return true
	}
	return false
}

// Encode converts s to bytes.
func (e Encoding) Encode(s string) ([]byte, error) {
	switch e {
	case EncodingUTF8, "":
		return []byte(s), nil
	case EncodingLatin1:
		return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	case EncodingHex:
		return hex.DecodeString(s)
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(s)
	}
	return nil, &ConfigError{Field: "encoding", Value: e}
}

// normalize converts a write payload to a fresh byte slice the caller can no
// longer mutate. Accepted forms are []byte, string and []int of byte values.
func normalize(data any, enc Encoding) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		b, err := enc.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s string: %v", ErrInvalidData, enc, err)
		}
		return b, nil
	case []int:
		b := make([]byte, len(v))
		for i, n := range v {
			if n < 0 || n > 0xff {
				return nil, fmt.Errorf("%w: value %d at index %d is not a byte", ErrInvalidData, n, i)
			}
			b[i] = byte(n)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidData, data)
}
