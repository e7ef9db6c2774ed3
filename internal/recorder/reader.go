package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

var ErrChecksumMismatch = errors.New("recorder checksum mismatch")

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes capture records sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	topic     []byte
	payload   []byte
}

// NewReader wraps an io.Reader with capture decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next record. The topic and payload are only valid until
// the next call to Next.
func (r *Reader) Next() (Record, error) {
	var rec Record

	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return rec, io.EOF
		}
		return rec, err
	}

	topicLen, payloadLen, ts, err := decodeRecordHeader(r.headerBuf)
	if err != nil {
		return rec, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return rec, ErrPayloadTooLarge
	}

	if cap(r.topic) < topicLen {
		r.topic = make([]byte, topicLen)
	}
	r.topic = r.topic[:topicLen]
	if topicLen > 0 {
		if _, err := io.ReadFull(r.r, r.topic); err != nil {
			return rec, err
		}
	}

	if cap(r.payload) < int(payloadLen) {
		r.payload = make([]byte, payloadLen)
	}
	r.payload = r.payload[:payloadLen]
	if payloadLen > 0 {
		if _, err := io.ReadFull(r.r, r.payload); err != nil {
			return rec, err
		}
	}

	var checksumBuf [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, checksumBuf[:]); err != nil {
		return rec, err
	}

	if !r.opts.DisableChecksum {
		expected := binary.LittleEndian.Uint32(checksumBuf[:])
		sum := checksum(r.headerBuf, r.topic, r.payload)
		if sum != expected {
			return rec, ErrChecksumMismatch
		}
	}

	rec.Topic = string(r.topic)
	rec.Ts = ts
	rec.Payload = r.payload
	return rec, nil
}
