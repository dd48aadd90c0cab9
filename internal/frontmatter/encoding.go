package frontmatter

import (
	"bytes"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Detected describes the source encoding of a pack file.
type Detected struct {
	Encoding string `json:"encoding"`
	HasBOM   bool   `json:"has_bom"`
	bomLen   int
}

type byteOrderMark struct {
	prefix   []byte
	encoding string
}

var byteOrderMarks = []byteOrderMark{
	{[]byte{0xEF, 0xBB, 0xBF}, "utf-8"},
	{[]byte{0xFF, 0xFE}, "utf-16le"},
	{[]byte{0xFE, 0xFF}, "utf-16be"},
}

var decoders = map[string]encoding.Encoding{
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"windows-1252": charmap.Windows1252,
}

// Only the head of a file is inspected when guessing between UTF-8 and
// Windows-1252.
const sniffLen = 8 << 10

// DetectEncoding honours a byte order mark first. Without one, text is
// ascii or utf-8 when it decodes cleanly and windows-1252 otherwise, the
// usual encoding of Markdown saved by older Windows editors.
func DetectEncoding(data []byte) Detected {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(data, bom.prefix) {
			return Detected{Encoding: bom.encoding, HasBOM: true, bomLen: len(bom.prefix)}
		}
	}

	head := data
	if len(head) > sniffLen {
		head = dropPartialRune(head[:sniffLen])
	}

	switch {
	case len(data) == 0:
		return Detected{Encoding: "utf-8"}
	case isASCII(head):
		return Detected{Encoding: "ascii"}
	case utf8.Valid(head):
		return Detected{Encoding: "utf-8"}
	default:
		return Detected{Encoding: "windows-1252"}
	}
}

func dropPartialRune(b []byte) []byte {
	for n := 0; n < utf8.UTFMax && len(b) > 0; n++ {
		if r, size := utf8.DecodeLastRune(b); r != utf8.RuneError || size > 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// DecodeToUTF8 converts data from the detected encoding. Bytes that cannot
// be decoded become U+FFFD.
func DecodeToUTF8(data []byte, d Detected) string {
	data = data[d.bomLen:]

	if enc, ok := decoders[d.Encoding]; ok && len(data) > 0 {
		if out, err := enc.NewDecoder().Bytes(data); err == nil {
			data = out
		}
	}

	return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
}

// ReadFileAsUTF8 reads path and returns its text decoded to UTF-8.
func ReadFileAsUTF8(path string) (string, Detected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Detected{}, err
	}

	d := DetectEncoding(data)
	return DecodeToUTF8(data, d), d, nil
}
