package tuple

import "fmt"

// Type represents the type of a single field in a tuple. Only integer and
// string fields are supported.
type Type byte

const (
	TypeInt Type = iota
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Field is a single typed value within a Tuple.
type Field struct {
	Type Type
	Int  int64
	Str  string
}

// IntField builds an integer field.
func IntField(v int64) Field {
	return Field{Type: TypeInt, Int: v}
}

// StringField builds a string field.
func StringField(v string) Field {
	return Field{Type: TypeString, Str: v}
}

// Compare orders two fields of the same type. Comparing fields of differing
// types is a programming error and panics.
func (f Field) Compare(other Field) int {
	if f.Type != other.Type {
		panic(fmt.Sprintf("tuple: cannot compare field of type %s with field of type %s", f.Type, other.Type))
	}
	switch f.Type {
	case TypeInt:
		switch {
		case f.Int < other.Int:
			return -1
		case f.Int > other.Int:
			return 1
		default:
			return 0
		}
	case TypeString:
		switch {
		case f.Str < other.Str:
			return -1
		case f.Str > other.Str:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("tuple: unknown field type %d", f.Type))
	}
}

func (f Field) Equal(other Field) bool {
	return f.Type == other.Type && f.Compare(other) == 0
}

func (f Field) String() string {
	switch f.Type {
	case TypeInt:
		return fmt.Sprintf("%d", f.Int)
	case TypeString:
		return f.Str
	default:
		return "?"
	}
}
