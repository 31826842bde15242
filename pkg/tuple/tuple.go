package tuple

// Tuple is an ordered sequence of typed fields comprising a logical record.
type Tuple struct {
	Fields []Field
}

// New builds a tuple from fields.
func New(fields ...Field) *Tuple {
	return &Tuple{Fields: fields}
}

// Project returns a new tuple holding only the fields at the given indices,
// in the order given. Used to compute group-by keys and join keys.
func (t *Tuple) Project(indices []int) *Tuple {
	fields := make([]Field, len(indices))
	for i, idx := range indices {
		fields[i] = t.Fields[idx]
	}
	return &Tuple{Fields: fields}
}

// Concat returns the field-wise concatenation of two tuples, used as the
// result tuple of a join.
func (t *Tuple) Concat(other *Tuple) *Tuple {
	fields := make([]Field, 0, len(t.Fields)+len(other.Fields))
	fields = append(fields, t.Fields...)
	fields = append(fields, other.Fields...)
	return &Tuple{Fields: fields}
}

// Key renders a tuple's fields into a comparable Go value suitable for use as
// a map key (grouping and hash-join build side).
func (t *Tuple) Key() interface{} {
	// Go slices aren't comparable/hashable; render to a string encoding so
	// it can key a map regardless of arity.
	return tupleKeyString(t.Fields)
}

func tupleKeyString(fields []Field) string {
	b := make([]byte, 0, 16*len(fields))
	for _, f := range fields {
		switch f.Type {
		case TypeInt:
			b = append(b, 'i', ':')
			b = appendInt(b, f.Int)
		case TypeString:
			// Length-prefix strings so a '|' inside one cannot make two
			// different tuples render the same key.
			b = append(b, 's', ':')
			b = appendInt(b, int64(len(f.Str)))
			b = append(b, ':')
			b = append(b, []byte(f.Str)...)
		}
		b = append(b, '|')
	}
	return string(b)
}

func appendInt(b []byte, v int64) []byte {
	neg := v < 0
	if neg {
		b = append(b, '-')
		v = -v
	}
	if v == 0 {
		return append(b, '0')
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	// reverse digits in place
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
