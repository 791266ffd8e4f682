package store

import (
	"context"
	"sync"

	"github.com/vertexdlt/vertexvm-engine/constexpr"
	"github.com/vertexdlt/vertexvm-engine/internal/zlog"
	"github.com/vertexdlt/vertexvm-engine/validate"
	"github.com/vertexdlt/vertexvm-engine/value"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
	"go.uber.org/zap"
)

// Invoker lets Store call back into a function (guest bytecode or a host
// callback) without importing the interpreter package — store sits below
// interp in the dependency graph, so the engine facade supplies the
// concrete Invoker once both packages exist. Instantiate only needs this to
// run a module's start function.
type Invoker interface {
	InvokeFunc(ctx context.Context, s *Store, addr FuncAddr, args []value.Value, fuel int64) (results []value.Value, fuelLeft int64, err error)
}

// Store owns every live object across every module instantiated into it:
// the object graph a ModuleInstance's addresses index into. A Store is
// safe for concurrent instantiation and export lookup. The interpreter
// mutates memories, tables and globals through the pointers the accessors
// return, without holding the store's lock.
type Store struct {
	mu sync.RWMutex

	funcs   []FuncInst
	tables  []TableInst
	mems    []MemInst
	globals []GlobalInst
	elems   []ElemInst
	datas   []DataInst
	modules []*ModuleInstance
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Func(addr FuncAddr) *FuncInst       { s.mu.RLock(); defer s.mu.RUnlock(); return &s.funcs[addr] }
func (s *Store) Table(addr TableAddr) *TableInst    { s.mu.RLock(); defer s.mu.RUnlock(); return &s.tables[addr] }
func (s *Store) Mem(addr MemAddr) *MemInst          { s.mu.RLock(); defer s.mu.RUnlock(); return &s.mems[addr] }
func (s *Store) Global(addr GlobalAddr) *GlobalInst { s.mu.RLock(); defer s.mu.RUnlock(); return &s.globals[addr] }
func (s *Store) Elem(addr ElemAddr) *ElemInst       { s.mu.RLock(); defer s.mu.RUnlock(); return &s.elems[addr] }
func (s *Store) Data(addr DataAddr) *DataInst       { s.mu.RLock(); defer s.mu.RUnlock(); return &s.datas[addr] }

// GlobalRead reads a global's current value. Unlike Global, which hands back
// a raw pointer for the interpreter's own use, this is the checked embedder
// entry point: it never exposes a mutable reference into the store.
func (s *Store) GlobalRead(addr GlobalAddr) value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globals[addr].Val
}

// GlobalWrite sets a global's value, enforcing that v's type matches the
// global's declared type and that the global was declared mutable — a
// global labelled immutable is never written after instantiation.
func (s *Store) GlobalWrite(addr GlobalAddr, v value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &s.globals[addr]
	if g.Type.Mut == wasmtype.Const {
		return newErr(PhaseExecute, KindWriteOnImmutableGlobal, "global %d is immutable", addr)
	}
	if g.Type.Val != v.Type {
		return newErr(PhaseExecute, KindGlobalTypeMismatch, "global %d expects %v, got %v", addr, g.Type.Val, v.Type)
	}
	g.Val = v
	return nil
}

// MemReadUnchecked copies len(dst) bytes starting at offset out of mem into
// dst with no bounds check of its own — callers validate offset and
// len(dst) against the memory's current size first. The interpreter's
// load/store opcodes do not use it; they read the memory's Data directly.
func (s *Store) MemReadUnchecked(addr MemAddr, offset uint32, dst []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copy(dst, s.mems[addr].Data[offset:])
}

// MemAccessMutSlice runs f with direct mutable access to mem's backing
// bytes, holding the store's lock for f's duration — the embedder's escape
// hatch for bulk reads/writes (e.g. copying a whole guest buffer out in one
// call) without reimplementing load/store's per-byte checked accessors.
func (s *Store) MemAccessMutSlice(addr MemAddr, f func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.mems[addr].Data)
}

// Module returns a previously instantiated module by address.
func (s *Store) Module(addr ModuleAddr) *ModuleInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules[addr]
}

// InstanceExport resolves one export of an already-instantiated module.
func (s *Store) InstanceExport(addr ModuleAddr, name string) (ExternVal, bool) {
	return s.Module(addr).Export(name)
}

// HostFuncAddr registers a standalone host function and returns its
// address, for binding into a linker.Registry ahead of instantiation.
func (s *Store) HostFuncAddr(ft wasmtype.FuncType, fn HostFunc) FuncAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs = append(s.funcs, FuncInst{Type: ft, Host: fn})
	return FuncAddr(len(s.funcs) - 1)
}

// Instantiate implements the module instantiation algorithm: check import
// compatibility against the supplied externs, allocate every module-defined
// function/table/memory/global, evaluate element and data segment offsets,
// copy active segments into their tables/memories (dropping them
// immediately after, as bulk-memory requires), and finally — if the module
// declares one — run the start function metered by startFuel.
func (s *Store) Instantiate(ctx context.Context, info *validate.Info, imports []ExternVal, invoker Invoker, startFuel int64) (*ModuleInstance, error) {
	if len(imports) != len(info.Imports) {
		return nil, newErr(PhaseLink, KindImportCountMismatch, "module declares %d imports, %d externs supplied", len(info.Imports), len(imports))
	}
	for i, im := range info.Imports {
		if err := s.checkImportCompatible(info, im, imports[i]); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()

	mi := &ModuleInstance{Types: info.Types, Exports: map[string]ExternVal{}, Sidetable: info.Sidetable, Bytecode: info.Bytecode}
	for _, ext := range imports {
		switch ext.Kind {
		case validate.ExternFunc:
			mi.FuncAddrs = append(mi.FuncAddrs, ext.Func)
		case validate.ExternTable:
			mi.TableAddrs = append(mi.TableAddrs, ext.Table)
		case validate.ExternMem:
			mi.MemAddrs = append(mi.MemAddrs, ext.Mem)
		case validate.ExternGlobal:
			mi.GlobalAddrs = append(mi.GlobalAddrs, ext.Global)
		}
	}

	moduleAddr := ModuleAddr(len(s.modules))

	for i, ti := range info.FuncTypeIdxs {
		s.funcs = append(s.funcs, FuncInst{
			Type:  info.Types[ti],
			Guest: &GuestFunc{Locals: info.Code[i].Locals, Code: info.Code[i], Module: moduleAddr},
		})
		mi.FuncAddrs = append(mi.FuncAddrs, FuncAddr(len(s.funcs)-1))
	}

	for _, tt := range info.Tables {
		elems := make([]value.Ref, tt.Limits.Min)
		for i := range elems {
			elems[i] = value.NullRef(tt.ElemType)
		}
		s.tables = append(s.tables, TableInst{Type: tt, Elems: elems})
		mi.TableAddrs = append(mi.TableAddrs, TableAddr(len(s.tables)-1))
	}

	for _, mt := range info.Mems {
		s.mems = append(s.mems, MemInst{Type: mt, Data: make([]byte, uint64(mt.Limits.Min)*uint64(wasmtype.MemPageSize))})
		mi.MemAddrs = append(mi.MemAddrs, MemAddr(len(s.mems)-1))
	}

	globalValueFn := func(idx uint32) (value.Value, error) {
		return s.globals[mi.GlobalAddrs[idx]].Val, nil
	}
	funcRefFn := func(idx uint32) value.Value {
		return value.FromRef(wasmtype.FuncRef, value.FuncRef(uint32(mi.FuncAddrs[idx])))
	}
	for _, g := range info.Globals {
		val, err := constexpr.Eval(g.Init, globalValueFn, funcRefFn)
		if err != nil {
			s.mu.Unlock()
			return nil, wrapErr(PhaseInstantiate, KindInitExprFailed, err, "evaluating global initializer")
		}
		s.globals = append(s.globals, GlobalInst{Type: g.Type, Val: val})
		mi.GlobalAddrs = append(mi.GlobalAddrs, GlobalAddr(len(s.globals)-1))
	}

	for _, e := range info.Elements {
		refs := make([]value.Ref, 0, len(e.Funcs)+len(e.Exprs))
		for _, fi := range e.Funcs {
			refs = append(refs, value.FuncRef(uint32(mi.FuncAddrs[fi])))
		}
		for _, ops := range e.Exprs {
			v, err := constexpr.Eval(ops, globalValueFn, funcRefFn)
			if err != nil {
				s.mu.Unlock()
				return nil, wrapErr(PhaseInstantiate, KindInitExprFailed, err, "evaluating element expression")
			}
			refs = append(refs, v.Ref())
		}
		s.elems = append(s.elems, ElemInst{Type: e.Type, Refs: refs})
		elemAddr := ElemAddr(len(s.elems) - 1)
		mi.ElemAddrs = append(mi.ElemAddrs, elemAddr)

		if e.Mode == validate.ElemActive {
			offVal, err := constexpr.Eval(e.Offset, globalValueFn, funcRefFn)
			if err != nil {
				s.mu.Unlock()
				return nil, wrapErr(PhaseInstantiate, KindInitExprFailed, err, "evaluating element segment offset")
			}
			off := offVal.U32()
			tbl := &s.tables[mi.TableAddrs[e.TableIdx]]
			if uint64(off)+uint64(len(refs)) > uint64(len(tbl.Elems)) {
				s.mu.Unlock()
				return nil, newErr(PhaseInstantiate, KindElementOutOfBounds, "active element segment at offset %d overruns table of size %d", off, len(tbl.Elems))
			}
			copy(tbl.Elems[off:], refs)
			s.elems[elemAddr].Refs = nil // active segments are dropped immediately after use
		}
		if e.Mode == validate.ElemDeclarative {
			s.elems[elemAddr].Refs = nil // declarative segments are never live; they exist only for ref.func validation
		}
	}

	for _, d := range info.DataSegs {
		s.datas = append(s.datas, DataInst{Bytes: d.Init})
		dataAddr := DataAddr(len(s.datas) - 1)
		mi.DataAddrs = append(mi.DataAddrs, dataAddr)

		if d.Mode == validate.DataActive {
			offVal, err := constexpr.Eval(d.Offset, globalValueFn, funcRefFn)
			if err != nil {
				s.mu.Unlock()
				return nil, wrapErr(PhaseInstantiate, KindInitExprFailed, err, "evaluating data segment offset")
			}
			off := offVal.U32()
			mem := &s.mems[mi.MemAddrs[d.MemIdx]]
			if uint64(off)+uint64(len(d.Init)) > uint64(len(mem.Data)) {
				s.mu.Unlock()
				return nil, newErr(PhaseInstantiate, KindDataOutOfBounds, "active data segment at offset %d overruns memory of size %d", off, len(mem.Data))
			}
			copy(mem.Data[off:], d.Init)
			s.datas[dataAddr].Bytes = nil
		}
	}

	for _, e := range info.Exports {
		ev := ExternVal{Kind: e.Kind}
		switch e.Kind {
		case validate.ExternFunc:
			ev.Func = mi.FuncAddrs[e.Idx]
		case validate.ExternTable:
			ev.Table = mi.TableAddrs[e.Idx]
		case validate.ExternMem:
			ev.Mem = mi.MemAddrs[e.Idx]
		case validate.ExternGlobal:
			ev.Global = mi.GlobalAddrs[e.Idx]
		}
		mi.Exports[e.Name] = ev
	}

	s.modules = append(s.modules, mi)
	s.mu.Unlock()

	zlog.L().Debug("module instantiated",
		zap.Int("module_addr", int(moduleAddr)),
		zap.Int("funcs", len(mi.FuncAddrs)),
		zap.Int("tables", len(mi.TableAddrs)),
		zap.Int("mems", len(mi.MemAddrs)),
		zap.Bool("has_start", info.StartFunc != nil))

	if info.StartFunc != nil {
		startAddr := mi.FuncAddrs[*info.StartFunc]
		if _, _, err := invoker.InvokeFunc(ctx, s, startAddr, nil, startFuel); err != nil {
			// The module's func/table/mem/global allocations stay in the
			// store (the interpreter needed them reachable by moduleAddr to
			// run the start function at all), but the module itself is
			// unlinked so no address the caller could have guessed ever
			// resolves to it — a trapped start leaves nothing reachable.
			s.mu.Lock()
			s.modules[moduleAddr] = nil
			s.mu.Unlock()
			return nil, wrapErr(PhaseInstantiate, KindStartTrapped, err, "running start function")
		}
	}

	return mi, nil
}

// checkImportCompatible verifies a supplied extern matches a declared
// import's kind, signature, and (for tables/memories) limits, per the Wasm
// import-matching rules.
func (s *Store) checkImportCompatible(info *validate.Info, im validate.Import, ext ExternVal) error {
	if im.Kind != ext.Kind {
		return newErr(PhaseLink, KindImportKindMismatch, "import %s.%s expects a %s, got a %s", im.Module, im.Name, im.Kind, ext.Kind)
	}
	switch im.Kind {
	case validate.ExternFunc:
		if int(im.TypeIdx) >= len(info.Types) {
			return newErr(PhaseLink, KindImportTypeMismatch, "import %s.%s has out-of-range type index %d", im.Module, im.Name, im.TypeIdx)
		}
		want := info.Types[im.TypeIdx]
		s.mu.RLock()
		got := s.funcs[ext.Func].Type
		s.mu.RUnlock()
		if !got.Equal(want) {
			return newErr(PhaseLink, KindImportTypeMismatch, "import %s.%s expects signature %v, got %v", im.Module, im.Name, want, got)
		}
	case validate.ExternTable:
		s.mu.RLock()
		got := s.tables[ext.Table].Type
		s.mu.RUnlock()
		if got.ElemType != im.Table.ElemType {
			return newErr(PhaseLink, KindImportTypeMismatch, "import %s.%s expects element type %v, got %v", im.Module, im.Name, im.Table.ElemType, got.ElemType)
		}
		if !got.Limits.FitsWithin(im.Table.Limits) {
			return newErr(PhaseLink, KindImportLimitsMismatch, "import %s.%s table limits incompatible", im.Module, im.Name)
		}
	case validate.ExternMem:
		s.mu.RLock()
		got := s.mems[ext.Mem].Type
		s.mu.RUnlock()
		if !got.Limits.FitsWithin(im.Mem.Limits) {
			return newErr(PhaseLink, KindImportLimitsMismatch, "import %s.%s memory limits incompatible", im.Module, im.Name)
		}
	case validate.ExternGlobal:
		s.mu.RLock()
		got := s.globals[ext.Global].Type
		s.mu.RUnlock()
		if got.Val != im.Global.Val || got.Mut != im.Global.Mut {
			return newErr(PhaseLink, KindImportTypeMismatch, "import %s.%s global type mismatch", im.Module, im.Name)
		}
	}
	return nil
}

// FuncType resolves a FuncAddr's signature, for linker-side diagnostics.
func (s *Store) FuncType(addr FuncAddr) wasmtype.FuncType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funcs[addr].Type
}
