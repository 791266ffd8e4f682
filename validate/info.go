package validate

import (
	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// Info is the successful product of Validate: section spans, the resolved
// type table, import/export typings, and the finished sidetable a store can
// instantiate without re-walking the bytecode.
type Info struct {
	Bytecode []byte

	Types   []wasmtype.FuncType
	Imports []Import
	// FuncTypeIdxs[i] is the type index of the i'th module-defined (i.e.
	// non-imported) function, parallel to Code.
	FuncTypeIdxs []uint32
	Tables       []wasmtype.TableType
	Mems         []wasmtype.MemType
	Globals      []Global
	Exports      []Export
	StartFunc    *uint32
	Elements     []Element
	Code         []FuncCode
	DataSegs     []Data
	DataCount    *uint32

	Sidetable sidetable.Table
}

// NumImportedFuncs returns how many of Imports are function imports —
// since the function index space is imports-then-defined, this is the
// base offset for FuncTypeIdxs.
func (info *Info) NumImportedFuncs() int {
	n := 0
	for _, im := range info.Imports {
		if im.Kind == ExternFunc {
			n++
		}
	}
	return n
}

// FuncType returns the signature of the func-index-space function at idx,
// whether imported or module-defined.
func (info *Info) FuncType(idx uint32) (wasmtype.FuncType, bool) {
	imported := uint32(info.NumImportedFuncs())
	if idx < imported {
		i := 0
		for _, im := range info.Imports {
			if im.Kind != ExternFunc {
				continue
			}
			if uint32(i) == idx {
				if int(im.TypeIdx) >= len(info.Types) {
					return wasmtype.FuncType{}, false
				}
				return info.Types[im.TypeIdx], true
			}
			i++
		}
		return wasmtype.FuncType{}, false
	}
	local := idx - imported
	if int(local) >= len(info.FuncTypeIdxs) {
		return wasmtype.FuncType{}, false
	}
	ti := info.FuncTypeIdxs[local]
	if int(ti) >= len(info.Types) {
		return wasmtype.FuncType{}, false
	}
	return info.Types[ti], true
}

// ReopenFuncBody returns a fresh Reader over one function's code span.
func (info *Info) ReopenFuncBody(fc FuncCode) *wasmread.Reader {
	return fc.Body.Reopen(info.Bytecode)
}

// NumFuncs is the total size of the function index space: imports then
// module-defined functions.
func (info *Info) NumFuncs() int {
	return info.NumImportedFuncs() + len(info.FuncTypeIdxs)
}

// TableType returns the table-index-space entry at idx, imported or
// module-defined.
func (info *Info) TableType(idx uint32) (wasmtype.TableType, bool) {
	imported := []wasmtype.TableType{}
	for _, im := range info.Imports {
		if im.Kind == ExternTable {
			imported = append(imported, im.Table)
		}
	}
	if int(idx) < len(imported) {
		return imported[idx], true
	}
	local := int(idx) - len(imported)
	if local < 0 || local >= len(info.Tables) {
		return wasmtype.TableType{}, false
	}
	return info.Tables[local], true
}

// NumTables is the total size of the table index space.
func (info *Info) NumTables() int {
	n := len(info.Tables)
	for _, im := range info.Imports {
		if im.Kind == ExternTable {
			n++
		}
	}
	return n
}

// MemType returns the memory-index-space entry at idx, imported or
// module-defined.
func (info *Info) MemType(idx uint32) (wasmtype.MemType, bool) {
	imported := []wasmtype.MemType{}
	for _, im := range info.Imports {
		if im.Kind == ExternMem {
			imported = append(imported, im.Mem)
		}
	}
	if int(idx) < len(imported) {
		return imported[idx], true
	}
	local := int(idx) - len(imported)
	if local < 0 || local >= len(info.Mems) {
		return wasmtype.MemType{}, false
	}
	return info.Mems[local], true
}

// NumMems is the total size of the memory index space.
func (info *Info) NumMems() int {
	n := len(info.Mems)
	for _, im := range info.Imports {
		if im.Kind == ExternMem {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns how many of Imports are global imports — the
// base offset for the locally-defined Globals slice in the global index
// space.
func (info *Info) NumImportedGlobals() int {
	n := 0
	for _, im := range info.Imports {
		if im.Kind == ExternGlobal {
			n++
		}
	}
	return n
}

// GlobalType returns the global-index-space entry's type at idx, imported
// or module-defined, and false if idx is outside the global index space.
func (info *Info) GlobalType(idx uint32) (wasmtype.GlobalType, bool) {
	imported := uint32(info.NumImportedGlobals())
	if idx < imported {
		i := uint32(0)
		for _, im := range info.Imports {
			if im.Kind != ExternGlobal {
				continue
			}
			if i == idx {
				return im.Global, true
			}
			i++
		}
		return wasmtype.GlobalType{}, false
	}
	local := int(idx - imported)
	if local < 0 || local >= len(info.Globals) {
		return wasmtype.GlobalType{}, false
	}
	return info.Globals[local].Type, true
}

// NumGlobals is the total size of the global index space.
func (info *Info) NumGlobals() int {
	return info.NumImportedGlobals() + len(info.Globals)
}
