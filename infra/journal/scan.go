package journal

import (
	"encoding/binary"
	"io"
	"os"
)

// maxSeqInSegment skims a segment's headers and returns the largest
// sequence number in it. Payloads are skipped, not verified.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var last uint64
	header := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return last, nil
			}
			return last, err
		}

		if seq := binary.BigEndian.Uint64(header[1:9]); seq > last {
			last = seq
		}

		payloadLen := binary.BigEndian.Uint32(header[17:21])

		// Skip payload + CRC
		if _, err := f.Seek(int64(payloadLen)+4, io.SeekCurrent); err != nil {
			return last, err
		}
	}
}
