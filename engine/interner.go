package engine

import (
	"github.com/dolthub/swiss"
	"github.com/opendis/pydec/opcode"
	"github.com/opendis/pydec/pyver"
)

// tableCache memoizes the canonical opcode.Table built for each distinct
// format version seen while decompiling a module. A module's nested code
// objects (every function and comprehension body) all share the module's
// version, so every code object gets the same cached table through
// Dispatcher.WithTable. opcode.NewDispatcher still builds its own table
// per code object before WithTable replaces it. swiss.Map is a good fit
// for a hot, small, read-mostly lookup; version tables are exactly
// that shape here.
type tableCache struct {
	m *swiss.Map[uint32, opcode.Table]
}

func newTableCache() *tableCache {
	return &tableCache{m: swiss.NewMap[uint32, opcode.Table](8)}
}

func versionKey(v pyver.Version) uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

func (c *tableCache) get(v pyver.Version) opcode.Table {
	key := versionKey(v)
	if t, ok := c.m.Get(key); ok {
		return t
	}
	t := opcode.NewTable(v)
	c.m.Put(key, t)
	return t
}
