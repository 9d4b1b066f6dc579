// Package contractCodec turns ink! contract metadata into message call data
// and decodes message return values.
package contractCodec

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

var (
	ErrUnknownMessage  = errors.New("unknown contract message")
	ErrDecodeMismatch  = errors.New("contract data does not match metadata")
	ErrUnsupportedType = errors.New("argument type cannot be parsed from text")
)

type Arg struct {
	Label string
	Type  uint32
}

// Message is a callable contract entry point.
type Message struct {
	Label      string
	Selector   [4]byte
	Mutates    bool
	Payable    bool
	Args       []Arg
	ReturnType *uint32
}

type Codec struct {
	ContractName    string
	ContractVersion string

	registry *tr.Registry
	messages *orderedmap.OrderedMap[string, *Message]
	logger   *zap.Logger
}

func toMessage(spec callableSpec) (*Message, error) {
	sel, err := parseSelector(spec.Selector)
	if err != nil {
		return nil, errors.Wrapf(err, "message '%s'", spec.Label)
	}
	m := &Message{
		Label:    spec.Label,
		Selector: sel,
		Mutates:  spec.Mutates,
		Payable:  spec.Payable,
		Args:     make([]Arg, 0, len(spec.Args)),
	}
	for _, a := range spec.Args {
		m.Args = append(m.Args, Arg{Label: a.Label, Type: a.Type.Type})
	}
	if spec.ReturnType != nil {
		rt := spec.ReturnType.Type
		m.ReturnType = &rt
	}
	return m, nil
}

func buildTable(specs []callableSpec, r *tr.Registry) (*orderedmap.OrderedMap[string, *Message], error) {
	table := orderedmap.New[string, *Message]()
	for _, spec := range specs {
		m, err := toMessage(spec)
		if err != nil {
			return nil, err
		}
		if _, found := table.Get(m.Label); found {
			return nil, errors.Wrapf(ErrInvalidMetadata, "duplicate label '%s'", m.Label)
		}
		for _, a := range m.Args {
			if _, err := r.Lookup(a.Type); err != nil {
				return nil, errors.Wrapf(ErrInvalidMetadata, "'%s' argument '%s': %v", m.Label, a.Label, err)
			}
		}
		if m.ReturnType != nil {
			if _, err := r.Lookup(*m.ReturnType); err != nil {
				return nil, errors.Wrapf(ErrInvalidMetadata, "'%s' return type: %v", m.Label, err)
			}
		}
		table.Set(m.Label, m)
	}
	return table, nil
}

// Parse validates and decodes raw ink! metadata JSON.
func Parse(raw []byte, l *zap.Logger) (*Codec, error) {
	if err := validateMetadata(raw); err != nil {
		return nil, err
	}
	var meta inkMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, errors.Wrap(ErrInvalidMetadata, err.Error())
	}
	registry, err := tr.FromJSON(meta.Types)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMetadata, err.Error())
	}
	messages, err := buildTable(meta.Spec.Messages, registry)
	if err != nil {
		return nil, err
	}

	l.Sugar().Debugw("Loaded contract metadata",
		zap.String("contract", meta.Contract.Name),
		zap.String("version", meta.Contract.Version),
		zap.Int("messages", messages.Len()),
		zap.Int("types", registry.Len()),
	)
	return &Codec{
		ContractName:    meta.Contract.Name,
		ContractVersion: meta.Contract.Version,
		registry:        registry,
		messages:        messages,
		logger:          l,
	}, nil
}

func (c *Codec) Registry() *tr.Registry {
	return c.registry
}

// Messages returns message labels in metadata order.
func (c *Codec) Messages() []string {
	labels := make([]string, 0, c.messages.Len())
	for pair := c.messages.Oldest(); pair != nil; pair = pair.Next() {
		labels = append(labels, pair.Key)
	}
	return labels
}

func (c *Codec) Message(label string) (*Message, error) {
	m, found := c.messages.Get(label)
	if !found {
		return nil, errors.Wrapf(ErrUnknownMessage, "'%s'", label)
	}
	return m, nil
}

func (c *Codec) encodeArgs(m *Message, args []string) ([]byte, error) {
	if len(args) != len(m.Args) {
		return nil, errors.Wrapf(ErrDecodeMismatch, "'%s' takes %d arguments, got %d", m.Label, len(m.Args), len(args))
	}
	e := scale.NewEncoder()
	e.Raw(m.Selector[:])
	for i, a := range m.Args {
		v, err := parseArg(c.registry, a.Type, args[i])
		if err != nil {
			return nil, errors.Wrapf(err, "'%s' argument '%s'", m.Label, a.Label)
		}
		if err := c.registry.Encode(a.Type, v, e); err != nil {
			return nil, errors.Wrapf(ErrDecodeMismatch, "'%s' argument '%s': %v", m.Label, a.Label, err)
		}
	}
	return e.Bytes(), nil
}

// EncodeCall returns the selector of message followed by its SCALE encoded
// arguments, each parsed from its textual form.
func (c *Codec) EncodeCall(message string, args []string) ([]byte, error) {
	m, err := c.Message(message)
	if err != nil {
		return nil, err
	}
	data, err := c.encodeArgs(m, args)
	if err != nil {
		return nil, err
	}
	c.logger.Sugar().Debugw("Encoded contract call",
		zap.String("message", message),
		zap.Int("args", len(args)),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// DecodeReturn decodes data as the return type of message. All input must be
// consumed.
func (c *Codec) DecodeReturn(message string, data []byte) (tr.Value, error) {
	m, err := c.Message(message)
	if err != nil {
		return tr.Value{}, err
	}
	if m.ReturnType == nil {
		if len(data) != 0 {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' returns nothing, got %d bytes", message, len(data))
		}
		return tr.NewTuple(""), nil
	}
	v, err := c.registry.DecodeBytes(*m.ReturnType, data)
	if err != nil {
		return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' return value: %v", message, err)
	}
	return v, nil
}
