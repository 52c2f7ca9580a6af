package sitearchive

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrStringIDsExhausted = errors.New("string table id space exhausted")
	ErrTableBuilt         = errors.New("string table already built")
)

// StringID identifies a string inside one StringTable. Zero means "no string".
type StringID uint32

// StringTableBuilder dedups strings during index construction.
// It is not safe for concurrent use.
type StringTableBuilder struct {
	ids     map[string]StringID
	strings []string
	next    uint64
	built   bool
}

func NewStringTableBuilder() *StringTableBuilder {
	return &StringTableBuilder{
		ids:  make(map[string]StringID),
		next: 1,
	}
}

// Intern returns the id previously assigned to s, or mints the next one.
func (b *StringTableBuilder) Intern(s string) (StringID, error) {
	if b.built {
		return 0, ErrTableBuilt
	}
	if id, ok := b.ids[s]; ok {
		return id, nil
	}
	if b.next > math.MaxUint32 {
		return 0, fmt.Errorf("%w (%d strings)", ErrStringIDsExhausted, len(b.strings))
	}
	id := StringID(b.next)
	b.next++
	b.ids[s] = id
	b.strings = append(b.strings, s)
	return id, nil
}

// Build snapshots the builder. The builder refuses new strings afterwards.
func (b *StringTableBuilder) Build() *StringTable {
	b.built = true
	t := &StringTable{strings: make([]string, len(b.strings))}
	copy(t.strings, b.strings)
	b.ids = nil
	b.strings = nil
	return t
}

// StringTable is the immutable id -> string side of a built builder.
// Safe for concurrent reads.
type StringTable struct {
	strings []string
}

// Resolve panics for ids that this table's builder never returned.
func (t *StringTable) Resolve(id StringID) string {
	if id == 0 || int(id) > len(t.strings) {
		panic(fmt.Sprintf("sitearchive: string id %d not in table of %d", id, len(t.strings)))
	}
	return t.strings[id-1]
}

func (t *StringTable) Len() int {
	return len(t.strings)
}
