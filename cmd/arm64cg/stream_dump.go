package main

import (
	"bytes"
	"encoding/binary"

	"github.com/albanread/fasterbasic-arm64cg/internal/arm64"
)

// recordsToBytes serializes a Stream's records in the fixed little-endian
// layout spec.md §4.9 describes; every Record field is a fixed-size
// primitive or array, so a straight binary.Write per record is exact.
func recordsToBytes(s *arm64.Stream) []byte {
	var buf bytes.Buffer
	for _, r := range s.Records {
		_ = binary.Write(&buf, binary.LittleEndian, r)
	}
	return buf.Bytes()
}
