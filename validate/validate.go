// Package validate implements the single-pass Wasm binary validator: it
// decodes every section, type-checks every function body and constant
// expression, and emits the sidetable the interpreter depends on to execute
// control flow without rescanning the bytecode.
package validate

import (
	"github.com/vertexdlt/vertexvm-engine/constexpr"
	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

type sectionID byte

const (
	secCustom    sectionID = 0
	secType      sectionID = 1
	secImport    sectionID = 2
	secFunction  sectionID = 3
	secTable     sectionID = 4
	secMemory    sectionID = 5
	secGlobal    sectionID = 6
	secExport    sectionID = 7
	secStart     sectionID = 8
	secElement   sectionID = 9
	secCode      sectionID = 10
	secData      sectionID = 11
	secDataCount sectionID = 12
)

// canonicalOrder is the sequence non-custom sections must appear in. Custom
// sections may appear any number of times, anywhere, without affecting it.
var canonicalOrder = []sectionID{
	secType, secImport, secFunction, secTable, secMemory, secGlobal,
	secExport, secStart, secElement, secDataCount, secCode, secData,
}

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d}
var wasmVersion = [4]byte{0x01, 0x00, 0x00, 0x00}

// Validate decodes and type-checks a complete Wasm binary module, returning
// the ValidationInfo product (here named Info) an instantiation can consume
// without re-walking the bytecode.
func Validate(wasm []byte) (*Info, error) {
	r := wasmread.New(wasm)

	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapErr(KindInvalidMagic, 0, err, "reading magic header")
	}
	for i, b := range magic {
		if b != wasmMagic[i] {
			return nil, newErr(KindInvalidMagic, 0, "not a Wasm module: bad magic bytes")
		}
	}
	ver, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapErr(KindInvalidVersion, 4, err, "reading version header")
	}
	for i, b := range ver {
		if b != wasmVersion[i] {
			return nil, newErr(KindInvalidVersion, 4, "unsupported binary version")
		}
	}

	info := &Info{Bytecode: wasm}
	sb := sidetable.NewBuilder()
	orderIdx := 0

	for r.Len() > 0 {
		secOffset := r.Pos()
		id, err := r.ReadByte()
		if err != nil {
			return nil, wrapErr(KindTruncatedInput, secOffset, err, "reading section id")
		}
		size, err := r.ReadVarU32()
		if err != nil {
			return nil, wrapErr(KindTruncatedInput, r.Pos(), err, "reading section size")
		}
		bodyStart := r.Pos()
		if r.Len() < int(size) {
			return nil, newErr(KindTruncatedInput, bodyStart, "section %d truncated: declares %d bytes, only %d remain", id, size, r.Len())
		}
		sectionEnd := bodyStart + int(size)

		sid := sectionID(id)
		if sid != secCustom {
			pos := -1
			for i := orderIdx; i < len(canonicalOrder); i++ {
				if canonicalOrder[i] == sid {
					pos = i
					break
				}
			}
			if pos < 0 {
				return nil, newErr(KindSectionOutOfOrder, secOffset, "section id %d out of order or duplicated", id)
			}
			orderIdx = pos + 1
		}

		if err := decodeSection(info, sb, sid, r, sectionEnd); err != nil {
			return nil, err
		}
		if r.Pos() != sectionEnd {
			return nil, newErr(KindTruncatedInput, r.Pos(), "section %d declared %d bytes but decoding consumed a different amount", id, size)
		}
	}

	if err := validateCode(info, sb); err != nil {
		return nil, err
	}
	info.Sidetable = sb.Finish()
	return info, nil
}

func decodeSection(info *Info, sb *sidetable.Builder, id sectionID, body *wasmread.Reader, base int) error {
	switch id {
	case secCustom:
		// payload carries a name then opaque bytes; validated but unused.
		if _, err := body.ReadName(); err != nil {
			return wrapErr(KindMalformedUTF8, base, err, "custom section name")
		}
		if body.Pos() < base {
			if err := body.Skip(base - body.Pos()); err != nil {
				return wrapErr(KindTruncatedInput, base, err, "custom section payload")
			}
		}

	case secType:
		types, err := wasmread.ReadVec(body, readFuncType)
		if err != nil {
			return err
		}
		info.Types = types

	case secImport:
		imports, err := wasmread.ReadVec(body, readImport)
		if err != nil {
			return err
		}
		info.Imports = imports

	case secFunction:
		idxs, err := wasmread.ReadVec(body, func(r *wasmread.Reader) (uint32, error) { return r.ReadVarU32() })
		if err != nil {
			return err
		}
		for _, ti := range idxs {
			if int(ti) >= len(info.Types) {
				return newErr(KindUndefinedTypeIdx, base, "function declares undefined type index %d", ti)
			}
		}
		info.FuncTypeIdxs = idxs

	case secTable:
		tables, err := wasmread.ReadVec(body, readTableType)
		if err != nil {
			return err
		}
		info.Tables = tables

	case secMemory:
		mems, err := wasmread.ReadVec(body, readMemType)
		if err != nil {
			return err
		}
		info.Mems = mems
		if info.NumMems() > 1 {
			return newErr(KindMultipleMemories, base, "more than one memory declared")
		}

	case secGlobal:
		globals, err := wasmread.ReadVec(body, func(r *wasmread.Reader) (Global, error) {
			return readGlobal(info, r)
		})
		if err != nil {
			return err
		}
		info.Globals = globals

	case secExport:
		exports, err := wasmread.ReadVec(body, func(r *wasmread.Reader) (Export, error) {
			return readExport(info, r)
		})
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, e := range exports {
			if seen[e.Name] {
				return newErr(KindInvalidImportExport, base, "duplicate export name %q", e.Name)
			}
			seen[e.Name] = true
		}
		info.Exports = exports

	case secStart:
		idx, err := body.ReadVarU32()
		if err != nil {
			return err
		}
		if int(idx) >= info.NumFuncs() {
			return newErr(KindUndefinedFuncIdx, base, "start function references undefined function index %d", idx)
		}
		ft, _ := info.FuncType(idx)
		if len(ft.Params) != 0 || len(ft.Results) != 0 {
			return newErr(KindInvalidFuncType, base, "start function must have no params or results")
		}
		info.StartFunc = &idx

	case secElement:
		elems, err := wasmread.ReadVec(body, func(r *wasmread.Reader) (Element, error) {
			return readElement(info, r)
		})
		if err != nil {
			return err
		}
		info.Elements = elems

	case secDataCount:
		n, err := body.ReadVarU32()
		if err != nil {
			return err
		}
		info.DataCount = &n

	case secCode:
		codes, err := wasmread.ReadVec(body, readFuncCode)
		if err != nil {
			return err
		}
		if len(codes) != len(info.FuncTypeIdxs) {
			return newErr(KindInvalidFuncType, base, "code section has %d bodies, function section declared %d", len(codes), len(info.FuncTypeIdxs))
		}
		info.Code = codes

	case secData:
		datas, err := wasmread.ReadVec(body, func(r *wasmread.Reader) (Data, error) {
			return readData(info, r)
		})
		if err != nil {
			return err
		}
		if info.DataCount != nil && uint32(len(datas)) != *info.DataCount {
			return newErr(KindDataCountMismatch, base, "data section has %d segments, data count section declared %d", len(datas), *info.DataCount)
		}
		info.DataSegs = datas
	}
	return nil
}

func readImport(r *wasmread.Reader) (Import, error) {
	mod, err := r.ReadName()
	if err != nil {
		return Import{}, wrapErr(KindMalformedUTF8, r.Pos(), err, "import module name")
	}
	name, err := r.ReadName()
	if err != nil {
		return Import{}, wrapErr(KindMalformedUTF8, r.Pos(), err, "import field name")
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return Import{}, err
	}
	im := Import{Module: mod, Name: name}
	switch kindByte {
	case 0x00:
		im.Kind = ExternFunc
		ti, err := r.ReadVarU32()
		if err != nil {
			return Import{}, err
		}
		im.TypeIdx = ti
	case 0x01:
		im.Kind = ExternTable
		tt, err := readTableType(r)
		if err != nil {
			return Import{}, err
		}
		im.Table = tt
	case 0x02:
		im.Kind = ExternMem
		mt, err := readMemType(r)
		if err != nil {
			return Import{}, err
		}
		im.Mem = mt
	case 0x03:
		im.Kind = ExternGlobal
		gt, err := readGlobalType(r)
		if err != nil {
			return Import{}, err
		}
		im.Global = gt
	default:
		return Import{}, newErr(KindInvalidImportExport, r.Pos()-1, "unrecognized import kind byte 0x%x", kindByte)
	}
	return im, nil
}

func readExport(info *Info, r *wasmread.Reader) (Export, error) {
	name, err := r.ReadName()
	if err != nil {
		return Export{}, wrapErr(KindMalformedUTF8, r.Pos(), err, "export name")
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return Export{}, err
	}
	idx, err := r.ReadVarU32()
	if err != nil {
		return Export{}, err
	}
	e := Export{Name: name, Idx: idx}
	switch kindByte {
	case 0x00:
		e.Kind = ExternFunc
		if int(idx) >= info.NumFuncs() {
			return Export{}, newErr(KindUndefinedFuncIdx, r.Pos(), "export references undefined function index %d", idx)
		}
	case 0x01:
		e.Kind = ExternTable
		if _, ok := info.TableType(idx); !ok {
			return Export{}, newErr(KindUndefinedTableIdx, r.Pos(), "export references undefined table index %d", idx)
		}
	case 0x02:
		e.Kind = ExternMem
		if _, ok := info.MemType(idx); !ok {
			return Export{}, newErr(KindUndefinedMemIdx, r.Pos(), "export references undefined memory index %d", idx)
		}
	case 0x03:
		e.Kind = ExternGlobal
		if _, ok := info.GlobalType(idx); !ok {
			return Export{}, newErr(KindUndefinedGlobalIdx, r.Pos(), "export references undefined global index %d", idx)
		}
	default:
		return Export{}, newErr(KindInvalidImportExport, r.Pos()-1, "unrecognized export kind byte 0x%x", kindByte)
	}
	return e, nil
}

// globalTypeFn adapts Info's combined import+local global lookup to the
// shape constexpr.TypeCheck wants: a ValType plus "is this immutable and
// imported" (the only kind of global a constant expression may read).
func globalTypeFn(info *Info) func(uint32) (wasmtype.ValType, bool, error) {
	numImported := uint32(info.NumImportedGlobals())
	return func(idx uint32) (wasmtype.ValType, bool, error) {
		gt, ok := info.GlobalType(idx)
		if !ok {
			return 0, false, newErr(KindUndefinedGlobalIdx, 0, "undefined global index %d", idx)
		}
		return gt.Val, idx < numImported && gt.Mut == wasmtype.Const, nil
	}
}

func readConstExpr(r *wasmread.Reader) ([]constexpr.Op, error) {
	ops, err := constexpr.Decode(r)
	if err != nil {
		return nil, wrapErr(KindInvalidConstExpr, r.Pos(), err, "decoding constant expression")
	}
	return ops, nil
}

func readGlobal(info *Info, r *wasmread.Reader) (Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := readConstExpr(r)
	if err != nil {
		return Global{}, err
	}
	got, err := constexpr.TypeCheck(init, globalTypeFn(info))
	if err != nil {
		return Global{}, wrapErr(KindInvalidConstExpr, r.Pos(), err, "global initializer")
	}
	if got != gt.Val {
		return Global{}, newErr(KindInvalidConstExpr, r.Pos(), "global initializer type %v does not match declared type %v", got, gt.Val)
	}
	return Global{Type: gt, Init: init}, nil
}

func readData(info *Info, r *wasmread.Reader) (Data, error) {
	flag, err := r.ReadVarU32()
	if err != nil {
		return Data{}, err
	}
	d := Data{}
	switch flag {
	case 0:
		d.Mode = DataActive
		d.MemIdx = 0
		off, err := readConstExpr(r)
		if err != nil {
			return Data{}, err
		}
		if _, err := constexpr.TypeCheck(off, globalTypeFn(info)); err != nil {
			return Data{}, wrapErr(KindInvalidConstExpr, r.Pos(), err, "data offset expression")
		}
		d.Offset = off
	case 1:
		d.Mode = DataPassive
	case 2:
		d.Mode = DataActive
		idx, err := r.ReadVarU32()
		if err != nil {
			return Data{}, err
		}
		if _, ok := info.MemType(idx); !ok {
			return Data{}, newErr(KindUndefinedMemIdx, r.Pos(), "data segment references undefined memory index %d", idx)
		}
		d.MemIdx = idx
		off, err := readConstExpr(r)
		if err != nil {
			return Data{}, err
		}
		if _, err := constexpr.TypeCheck(off, globalTypeFn(info)); err != nil {
			return Data{}, wrapErr(KindInvalidConstExpr, r.Pos(), err, "data offset expression")
		}
		d.Offset = off
	default:
		return Data{}, newErr(KindInvalidImportExport, r.Pos()-1, "unrecognized data segment flag %d", flag)
	}
	n, err := r.ReadVarU32()
	if err != nil {
		return Data{}, err
	}
	bytes, err := r.ReadBytes(int(n))
	if err != nil {
		return Data{}, err
	}
	d.Init = append([]byte{}, bytes...)
	return d, nil
}

func readElement(info *Info, r *wasmread.Reader) (Element, error) {
	flag, err := r.ReadVarU32()
	if err != nil {
		return Element{}, err
	}
	e := Element{Type: wasmtype.FuncRef}
	checkOffset := func(off []constexpr.Op) error {
		got, err := constexpr.TypeCheck(off, globalTypeFn(info))
		if err != nil {
			return wrapErr(KindInvalidConstExpr, r.Pos(), err, "element offset expression")
		}
		if got != wasmtype.I32 {
			return newErr(KindInvalidConstExpr, r.Pos(), "element offset expression must produce i32")
		}
		return nil
	}
	readFuncIdxVec := func() ([]uint32, error) {
		return wasmread.ReadVec(r, func(r *wasmread.Reader) (uint32, error) {
			idx, err := r.ReadVarU32()
			if err != nil {
				return 0, err
			}
			if int(idx) >= info.NumFuncs() {
				return 0, newErr(KindUndefinedFuncIdx, r.Pos(), "element segment references undefined function index %d", idx)
			}
			return idx, nil
		})
	}
	readExprVec := func() ([][]constexpr.Op, error) {
		return wasmread.ReadVec(r, func(r *wasmread.Reader) ([]constexpr.Op, error) {
			ops, err := readConstExpr(r)
			if err != nil {
				return nil, err
			}
			got, err := constexpr.TypeCheck(ops, globalTypeFn(info))
			if err != nil {
				return nil, wrapErr(KindInvalidConstExpr, r.Pos(), err, "element expression")
			}
			if got != e.Type {
				return nil, newErr(KindInvalidConstExpr, r.Pos(), "element expression type %v does not match segment type %v", got, e.Type)
			}
			return ops, nil
		})
	}

	switch flag {
	case 0:
		e.Mode = ElemActive
		e.TableIdx = 0
		off, err := readConstExpr(r)
		if err != nil {
			return Element{}, err
		}
		if err := checkOffset(off); err != nil {
			return Element{}, err
		}
		e.Offset = off
		funcs, err := readFuncIdxVec()
		if err != nil {
			return Element{}, err
		}
		e.Funcs = funcs
	case 1:
		e.Mode = ElemPassive
		if _, err := r.ReadByte(); err != nil { // elemkind, must be 0x00 (funcref)
			return Element{}, err
		}
		funcs, err := readFuncIdxVec()
		if err != nil {
			return Element{}, err
		}
		e.Funcs = funcs
	case 2:
		e.Mode = ElemActive
		idx, err := r.ReadVarU32()
		if err != nil {
			return Element{}, err
		}
		if _, ok := info.TableType(idx); !ok {
			return Element{}, newErr(KindUndefinedTableIdx, r.Pos(), "element segment references undefined table index %d", idx)
		}
		e.TableIdx = idx
		off, err := readConstExpr(r)
		if err != nil {
			return Element{}, err
		}
		if err := checkOffset(off); err != nil {
			return Element{}, err
		}
		e.Offset = off
		if _, err := r.ReadByte(); err != nil {
			return Element{}, err
		}
		funcs, err := readFuncIdxVec()
		if err != nil {
			return Element{}, err
		}
		e.Funcs = funcs
	case 3:
		e.Mode = ElemDeclarative
		if _, err := r.ReadByte(); err != nil {
			return Element{}, err
		}
		funcs, err := readFuncIdxVec()
		if err != nil {
			return Element{}, err
		}
		e.Funcs = funcs
	case 4:
		e.Mode = ElemActive
		e.TableIdx = 0
		off, err := readConstExpr(r)
		if err != nil {
			return Element{}, err
		}
		if err := checkOffset(off); err != nil {
			return Element{}, err
		}
		e.Offset = off
		exprs, err := readExprVec()
		if err != nil {
			return Element{}, err
		}
		e.Exprs = exprs
	case 5:
		e.Mode = ElemPassive
		rt, err := readRefType(r)
		if err != nil {
			return Element{}, err
		}
		e.Type = rt
		exprs, err := readExprVec()
		if err != nil {
			return Element{}, err
		}
		e.Exprs = exprs
	case 6:
		e.Mode = ElemActive
		idx, err := r.ReadVarU32()
		if err != nil {
			return Element{}, err
		}
		if _, ok := info.TableType(idx); !ok {
			return Element{}, newErr(KindUndefinedTableIdx, r.Pos(), "element segment references undefined table index %d", idx)
		}
		e.TableIdx = idx
		off, err := readConstExpr(r)
		if err != nil {
			return Element{}, err
		}
		if err := checkOffset(off); err != nil {
			return Element{}, err
		}
		e.Offset = off
		rt, err := readRefType(r)
		if err != nil {
			return Element{}, err
		}
		e.Type = rt
		exprs, err := readExprVec()
		if err != nil {
			return Element{}, err
		}
		e.Exprs = exprs
	case 7:
		e.Mode = ElemDeclarative
		rt, err := readRefType(r)
		if err != nil {
			return Element{}, err
		}
		e.Type = rt
		exprs, err := readExprVec()
		if err != nil {
			return Element{}, err
		}
		e.Exprs = exprs
	default:
		return Element{}, newErr(KindInvalidImportExport, r.Pos()-1, "unrecognized element segment flag %d", flag)
	}
	return e, nil
}

// readFuncCode decodes one code-section entry directly off the module's
// single shared Reader, so every Span it records (exprSpan.From) is an
// absolute offset into Info.Bytecode rather than a section-local one — the
// validator never sub-slices the buffer, only bounds its reads by position.
func readFuncCode(r *wasmread.Reader) (FuncCode, error) {
	size, err := r.ReadVarU32()
	if err != nil {
		return FuncCode{}, err
	}
	bodyStart := r.Pos()
	if r.Len() < int(size) {
		return FuncCode{}, newErr(KindTruncatedInput, bodyStart, "function body truncated")
	}
	bodyEnd := bodyStart + int(size)

	type localGroup struct {
		N uint32
		T wasmtype.ValType
	}
	localGroups, err := wasmread.ReadVec(r, func(b *wasmread.Reader) (localGroup, error) {
		n, err := b.ReadVarU32()
		if err != nil {
			return localGroup{}, err
		}
		t, err := readValType(b)
		if err != nil {
			return localGroup{}, err
		}
		return localGroup{N: n, T: t}, nil
	})
	if err != nil {
		return FuncCode{}, err
	}
	var locals []wasmtype.ValType
	for _, g := range localGroups {
		for i := uint32(0); i < g.N; i++ {
			locals = append(locals, g.T)
		}
	}

	exprSpan := wasmread.Span{From: r.Pos(), Len: bodyEnd - r.Pos()}
	if exprSpan.Len < 0 {
		return FuncCode{}, newErr(KindTruncatedInput, r.Pos(), "function body local declarations overrun the declared body size")
	}
	if err := r.Skip(exprSpan.Len); err != nil {
		return FuncCode{}, err
	}
	return FuncCode{Locals: locals, Body: exprSpan}, nil
}

// validateCode runs the operand/control-stack validator over every
// function body, assigning each FuncCode its starting sidetable index.
func validateCode(info *Info, sb *sidetable.Builder) error {
	for i := range info.Code {
		fc := &info.Code[i]
		funcIdx := uint32(info.NumImportedFuncs() + i)
		ft, ok := info.FuncType(funcIdx)
		if !ok {
			return newErr(KindUndefinedTypeIdx, 0, "function %d has no resolvable type", funcIdx)
		}
		fc.STP = sb.Len()
		r := info.ReopenFuncBody(*fc)
		if err := validateFuncBody(info, sb, ft, fc.Locals, r); err != nil {
			return err
		}
	}
	return nil
}
