package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 24
	recordChecksumSize        = 4
	maxTopicLen               = int(^uint16(0))
)

var (
	recordMagic = [4]byte{'M', 'D', 'R', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("record invalid magic")
	ErrUnsupportedRecordVer    = errors.New("record unsupported version")
	ErrInvalidRecordHeaderSize = errors.New("record invalid header size")
	ErrTopicTooLong            = errors.New("record topic too long")
)

// Record is one captured bus entry: the topic it was appended to, its
// millisecond timestamp and the raw payload.
type Record struct {
	Topic   string
	Ts      int64
	Payload []byte
}

// Header layout, little endian:
// [0:4]   magic
// [4:6]   record version
// [6:8]   header size
// [8:10]  topic length
// [10:12] reserved
// [12:16] payload length
// [16:24] ts (unix ms)
// Topic bytes and payload follow the header, then a CRC32-Castagnoli
// checksum over header + topic + payload.
func encodeHeader(dst []byte, topicLen, payloadLen int, ts int64) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], recordVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(topicLen))
	binary.LittleEndian.PutUint16(dst[10:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(ts))
}

func checksum(header, topic, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	crc = crc32.Update(crc, crcTable, topic)
	return crc32.Update(crc, crcTable, payload)
}

func decodeRecordHeader(src []byte) (topicLen int, payloadLen uint32, ts int64, err error) {
	if len(src) < recordHeaderSize {
		return 0, 0, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return 0, 0, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != recordVersion {
		return 0, 0, 0, ErrUnsupportedRecordVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != recordHeaderSize {
		return 0, 0, 0, ErrInvalidRecordHeaderSize
	}
	topicLen = int(binary.LittleEndian.Uint16(src[8:10]))
	payloadLen = binary.LittleEndian.Uint32(src[12:16])
	ts = int64(binary.LittleEndian.Uint64(src[16:24]))
	return topicLen, payloadLen, ts, nil
}
