// Package protocol defines the daemon's request and reply messages, the
// items they address, and their CBOR wire encoding.
//
// Every message is a single CBOR array encoded with Core Deterministic
// Encoding (RFC 8949 section 4.2). CBOR values are self-delimiting, so a
// stream of replies can be decoded without an additional length prefix.
package protocol

import (
	"io"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/errors"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxNestedLevels:  8,
		MaxArrayElements: 4096,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeMessage returns the wire form of m.
func EncodeMessage(m Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, errors.New().Wrap(errors.ErrEncode, err)
	}

	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrEncode, err)
	}

	return data, nil
}

// DecodeMessage parses exactly one message from data. Trailing bytes,
// unknown types and out-of-range items are rejected.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := decMode.Unmarshal(data, &m); err != nil {
		return Message{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	if err := m.validate(); err != nil {
		return Message{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	return m, nil
}

// EncodeReply returns the wire form of r.
func EncodeReply(r Reply) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, errors.New().Wrap(errors.ErrEncode, err)
	}

	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrEncode, err)
	}

	return data, nil
}

// DecodeReply parses exactly one reply from data.
func DecodeReply(data []byte) (Reply, error) {
	var r Reply
	if err := decMode.Unmarshal(data, &r); err != nil {
		return Reply{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	if err := r.validate(); err != nil {
		return Reply{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	return r, nil
}

// ReplyDecoder reads consecutive replies from a stream, reassembling
// replies that span several reads.
type ReplyDecoder struct {
	dec *cbor.Decoder
}

func NewReplyDecoder(r io.Reader) *ReplyDecoder {
	return &ReplyDecoder{dec: decMode.NewDecoder(r)}
}

// Decode reads the next reply. io.EOF is returned unwrapped when the stream
// ends cleanly between replies.
func (d *ReplyDecoder) Decode() (Reply, error) {
	var r Reply
	if err := d.dec.Decode(&r); err != nil {
		if err == io.EOF {
			return Reply{}, io.EOF
		}
		return Reply{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	if err := r.validate(); err != nil {
		return Reply{}, errors.New().Wrap(errors.ErrDecode, err)
	}

	return r, nil
}

func (m Message) validate() error {
	errFactory := errors.New()

	if m.Type > MessageListen {
		return errFactory.WithData(errors.ErrInvalidArgument, "unknown message type "+strconv.Itoa(int(m.Type)))
	}
	if !m.Item.Valid() {
		return errFactory.WithData(errors.ErrInvalidItem, m.Item)
	}

	return nil
}

func (r Reply) validate() error {
	errFactory := errors.New()

	if r.Type > ReplyError {
		return errFactory.WithData(errors.ErrInvalidArgument, "unknown reply type "+strconv.Itoa(int(r.Type)))
	}
	if !r.Item.Valid() {
		return errFactory.WithData(errors.ErrInvalidItem, r.Item)
	}

	return nil
}

// ParseBool parses the boolean spellings accepted for Set values.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	}

	return false, errors.New().WithData(errors.ErrInvalidValue, "invalid boolean '"+s+"', use true/false or 1/0")
}
