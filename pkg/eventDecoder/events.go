package eventDecoder

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/ss58"
)

var (
	ErrUnknownEventTag = errors.New("unknown contract event tag")
	ErrMalformedEvent  = errors.New("malformed contract event")
)

const (
	tagBeforeFlipping byte = 0
	tagAfterFlipping  byte = 1
)

// ApplicationEvent is an event emitted by the DID contract.
type ApplicationEvent interface {
	EventName() string
}

type BeforeFlipping struct {
	From   ss58.AccountID
	Field1 uint64
	Field2 string
	Field3 string
}

type AfterFlipping struct {
	From   ss58.AccountID
	Field1 uint64
	Field2 string
	Field3 bool
}

func (BeforeFlipping) EventName() string { return "BeforeFlipping" }
func (AfterFlipping) EventName() string  { return "AfterFlipping" }

func (e BeforeFlipping) String() string {
	return fmt.Sprintf("BeforeFlipping { from: %s, field1: %d, field2: %q, field3: %q }", e.From, e.Field1, e.Field2, e.Field3)
}

func (e AfterFlipping) String() string {
	return fmt.Sprintf("AfterFlipping { from: %s, field1: %d, field2: %q, field3: %t }", e.From, e.Field1, e.Field2, e.Field3)
}

func decodeHeader(d *scale.Decoder) (ss58.AccountID, uint64, string, error) {
	raw, err := d.Read(32)
	if err != nil {
		return ss58.AccountID{}, 0, "", err
	}
	from, err := ss58.NewAccountID(raw)
	if err != nil {
		return ss58.AccountID{}, 0, "", err
	}
	field1, err := d.U64()
	if err != nil {
		return ss58.AccountID{}, 0, "", err
	}
	field2, err := d.String()
	if err != nil {
		return ss58.AccountID{}, 0, "", err
	}
	return from, field1, field2, nil
}

// DecodeApplicationEvent decodes a ContractEmitted payload. The first byte
// selects the event and the remainder must be consumed exactly.
func DecodeApplicationEvent(data []byte) (ApplicationEvent, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrMalformedEvent, "empty payload")
	}
	tag := data[0]
	if tag != tagBeforeFlipping && tag != tagAfterFlipping {
		return nil, errors.Wrapf(ErrUnknownEventTag, "tag %d", tag)
	}

	d := scale.NewDecoder(data[1:])
	from, field1, field2, err := decodeHeader(d)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "tag %d: %v", tag, err)
	}

	var ev ApplicationEvent
	switch tag {
	case tagBeforeFlipping:
		field3, err := d.String()
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedEvent, "BeforeFlipping field3: %v", err)
		}
		ev = BeforeFlipping{From: from, Field1: field1, Field2: field2, Field3: field3}
	case tagAfterFlipping:
		field3, err := d.Bool()
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedEvent, "AfterFlipping field3: %v", err)
		}
		ev = AfterFlipping{From: from, Field1: field1, Field2: field2, Field3: field3}
	}
	if err := d.Finish(); err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "%s: %v", ev.EventName(), err)
	}
	return ev, nil
}
