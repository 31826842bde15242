package tuple

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Codec encodes/decodes tuples to the opaque payload bytes the page layer
// stores. Encoding: [1-byte type][8-byte int64] for int fields,
// [1-byte type][4-byte length][utf8 bytes] for string fields, one after the
// other for every field in the schema, little-endian throughout. The page
// layer never inspects this encoding; it just stores and returns bytes.
type Codec struct {
	schema *Schema
}

// NewCodec builds a codec bound to a schema; every tuple encoded/decoded
// through it must match the schema's field count and types.
func NewCodec(schema *Schema) *Codec {
	return &Codec{schema: schema}
}

// Encode renders a tuple to bytes.
func (c *Codec) Encode(t *Tuple) ([]byte, error) {
	if len(t.Fields) != len(c.schema.Types) {
		return nil, fmt.Errorf("tuple: encode expected %d fields, got %d", len(c.schema.Types), len(t.Fields))
	}

	buf := new(bytes.Buffer)
	for i, f := range t.Fields {
		if f.Type != c.schema.Types[i] {
			return nil, fmt.Errorf("tuple: field %d type %s does not match schema type %s", i, f.Type, c.schema.Types[i])
		}
		buf.WriteByte(byte(f.Type))
		switch f.Type {
		case TypeInt:
			if err := binary.Write(buf, binary.LittleEndian, f.Int); err != nil {
				return nil, fmt.Errorf("tuple: encode int field %d: %w", i, err)
			}
		case TypeString:
			raw := []byte(f.Str)
			if err := binary.Write(buf, binary.LittleEndian, uint32(len(raw))); err != nil {
				return nil, fmt.Errorf("tuple: encode string length %d: %w", i, err)
			}
			buf.Write(raw)
		default:
			return nil, fmt.Errorf("tuple: unsupported field type %s", f.Type)
		}
	}
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode back into a tuple matching the
// codec's schema.
func (c *Codec) Decode(data []byte) (*Tuple, error) {
	r := bytes.NewReader(data)
	fields := make([]Field, len(c.schema.Types))

	for i, want := range c.schema.Types {
		typeByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("tuple: decode field %d type: %w", i, err)
		}
		got := Type(typeByte)
		if got != want {
			return nil, fmt.Errorf("tuple: decode field %d expected type %s, found %s", i, want, got)
		}
		switch got {
		case TypeInt:
			var v int64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return nil, fmt.Errorf("tuple: decode int field %d: %w", i, err)
			}
			fields[i] = IntField(v)
		case TypeString:
			var length uint32
			if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
				return nil, fmt.Errorf("tuple: decode string length %d: %w", i, err)
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("tuple: decode string field %d: %w", i, err)
			}
			fields[i] = StringField(string(raw))
		default:
			return nil, fmt.Errorf("tuple: unsupported field type %s", got)
		}
	}
	return &Tuple{Fields: fields}, nil
}
