package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"github.com/vmihailenco/msgpack/v5"

	"pytrace/internal/vm"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a portable copy of a script value. Only the field matching Kind
// is meaningful; Text holds both String and Opaque payloads.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Text  string
	Items []Value
	Map   *Map
}

func Null() Value                  { return Value{Kind: KindNull} }
func Bool(b bool) Value            { return Value{Kind: KindBool, Bool: b} }
func Int(n int64) Value            { return Value{Kind: KindInt, Int: n} }
func Float(f float64) Value        { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value        { return Value{Kind: KindString, Text: s} }
func Sequence(items []Value) Value { return Value{Kind: KindSequence, Items: items} }
func Mapping(m *Map) Value         { return Value{Kind: KindMapping, Map: m} }
func Opaque(text string) Value     { return Value{Kind: KindOpaque, Text: text} }

// String renders v compactly for logs and test failures.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return vm.FormatFloat(v.Float)
	case KindString:
		return strconv.Quote(v.Text)
	case KindOpaque:
		return "<" + v.Text + ">"
	case KindSequence:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMapping:
		return v.Map.String()
	}
	return "?"
}

// MarshalJSON writes String and Opaque as JSON strings; the consumer
// cannot tell them apart, matching the document contract.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.Bool)), nil
	case KindInt:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case KindFloat:
		return []byte(vm.FormatFloat(v.Float)), nil
	case KindString, KindOpaque:
		return marshalString(v.Text)
	case KindSequence:
		buf := []byte{'['}
		for i, it := range v.Items {
			if i > 0 {
				buf = append(buf, ',')
			}
			item, err := it.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, item...)
		}
		return append(buf, ']'), nil
	case KindMapping:
		return v.Map.MarshalJSON()
	}
	return nil, fmt.Errorf("snapshot: cannot marshal %s", v.Kind)
}

// marshalString quotes s without HTML escaping, so reprs like
// <__main__.P object at 0x...> stay readable.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

var _ msgpack.CustomEncoder = Value{}

// EncodeMsgpack mirrors MarshalJSON for the msgpack document format.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.Kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.Bool)
	case KindInt:
		return enc.EncodeInt(v.Int)
	case KindFloat:
		return enc.EncodeFloat64(v.Float)
	case KindString, KindOpaque:
		return enc.EncodeString(v.Text)
	case KindSequence:
		if err := enc.EncodeArrayLen(len(v.Items)); err != nil {
			return err
		}
		for _, it := range v.Items {
			if err := it.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindMapping:
		return v.Map.EncodeMsgpack(enc)
	}
	return fmt.Errorf("snapshot: cannot encode %s", v.Kind)
}

// Map is an insertion-ordered string-keyed mapping.
type Map struct {
	entries *sequencedmap.Map[string, Value]
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: sequencedmap.New[string, Value]()}
}

// Set stores v under key. Overwriting keeps the key's first position.
func (m *Map) Set(key string, v Value) {
	m.entries.Set(key, v)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	return m.entries.Get(key)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.entries.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.entries.Len())
	for k := range m.entries.All() {
		keys = append(keys, k)
	}
	return keys
}

func (m *Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	if m != nil {
		i := 0
		for k, v := range m.entries.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v.String())
			i++
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON writes the entries as a JSON object in insertion order.
// A nil map encodes as {}.
func (m *Map) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	if m != nil {
		i := 0
		for k, v := range m.entries.All() {
			if i > 0 {
				buf = append(buf, ',')
			}
			key, err := marshalString(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, key...)
			buf = append(buf, ':')
			val, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, val...)
			i++
		}
	}
	return append(buf, '}'), nil
}

var _ msgpack.CustomEncoder = (*Map)(nil)

// EncodeMsgpack writes the entries as a msgpack map in insertion order.
func (m *Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(m.Len()); err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	for k, v := range m.entries.All() {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := v.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}
