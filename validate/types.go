package validate

import (
	"github.com/vertexdlt/vertexvm-engine/constexpr"
	"github.com/vertexdlt/vertexvm-engine/wasmread"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// ExternKind tags the four kinds of importable/exportable externals.
type ExternKind byte

const (
	ExternFunc ExternKind = iota
	ExternTable
	ExternMem
	ExternGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMem:
		return "mem"
	case ExternGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Import is a decoded entry of the import section.
type Import struct {
	Module string
	Name   string
	Kind   ExternKind
	// Only the field matching Kind is populated.
	TypeIdx uint32
	Table   wasmtype.TableType
	Mem     wasmtype.MemType
	Global  wasmtype.GlobalType
}

// Export is a decoded entry of the export section.
type Export struct {
	Name string
	Kind ExternKind
	Idx  uint32
}

// Global is a decoded entry of the global section (module-defined, not
// imported): its declared type plus its constant-expression initializer.
type Global struct {
	Type wasmtype.GlobalType
	Init []constexpr.Op
}

// ElemMode distinguishes the three element-segment modes.
type ElemMode byte

const (
	ElemActive ElemMode = iota
	ElemPassive
	ElemDeclarative
)

// Element is a decoded entry of the element section.
type Element struct {
	Type    wasmtype.RefType
	Mode    ElemMode
	TableIdx uint32 // meaningful when Mode == ElemActive
	Offset  []constexpr.Op
	Funcs   []uint32 // function indices when the segment used the func-idx shorthand
	Exprs   [][]constexpr.Op // element expressions when the segment used full expr form
}

// DataMode distinguishes active vs. passive data segments.
type DataMode byte

const (
	DataActive DataMode = iota
	DataPassive
)

// Data is a decoded entry of the data section.
type Data struct {
	Mode   DataMode
	MemIdx uint32 // meaningful when Mode == DataActive
	Offset []constexpr.Op
	Init   []byte
}

// FuncCode is a decoded entry of the code section: a guest function's
// local variable types and its body span plus starting sidetable index.
type FuncCode struct {
	Locals []wasmtype.ValType
	Body   wasmread.Span
	STP    int
}

func readValType(r *wasmread.Reader) (wasmtype.ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch wasmtype.ValType(b) {
	case wasmtype.I32, wasmtype.I64, wasmtype.F32, wasmtype.F64, wasmtype.V128, wasmtype.FuncRef, wasmtype.ExternRef:
		return wasmtype.ValType(b), nil
	default:
		return 0, newErr(KindInvalidValType, r.Pos()-1, "unrecognized value type byte 0x%x", b)
	}
}

func readRefType(r *wasmread.Reader) (wasmtype.RefType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch wasmtype.ValType(b) {
	case wasmtype.FuncRef, wasmtype.ExternRef:
		return wasmtype.ValType(b), nil
	default:
		return 0, newErr(KindInvalidRefType, r.Pos()-1, "unrecognized reference type byte 0x%x", b)
	}
}

func readLimits(r *wasmread.Reader) (wasmtype.Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return wasmtype.Limits{}, err
	}
	min, err := r.ReadVarU32()
	if err != nil {
		return wasmtype.Limits{}, err
	}
	l := wasmtype.Limits{Min: min}
	if flag == 1 {
		max, err := r.ReadVarU32()
		if err != nil {
			return wasmtype.Limits{}, err
		}
		l.Max = &max
	} else if flag != 0 {
		return wasmtype.Limits{}, newErr(KindInvalidImportExport, r.Pos()-1, "invalid limits flag 0x%x", flag)
	}
	return l, nil
}

func readTableType(r *wasmread.Reader) (wasmtype.TableType, error) {
	elemType, err := readRefType(r)
	if err != nil {
		return wasmtype.TableType{}, err
	}
	lim, err := readLimits(r)
	if err != nil {
		return wasmtype.TableType{}, err
	}
	return wasmtype.TableType{ElemType: elemType, Limits: lim}, nil
}

func readMemType(r *wasmread.Reader) (wasmtype.MemType, error) {
	lim, err := readLimits(r)
	if err != nil {
		return wasmtype.MemType{}, err
	}
	return wasmtype.MemType{Limits: lim}, nil
}

func readGlobalType(r *wasmread.Reader) (wasmtype.GlobalType, error) {
	vt, err := readValType(r)
	if err != nil {
		return wasmtype.GlobalType{}, err
	}
	m, err := r.ReadByte()
	if err != nil {
		return wasmtype.GlobalType{}, err
	}
	mut := wasmtype.Const
	switch m {
	case 0:
		mut = wasmtype.Const
	case 1:
		mut = wasmtype.Var
	default:
		return wasmtype.GlobalType{}, newErr(KindInvalidImportExport, r.Pos()-1, "invalid mutability byte 0x%x", m)
	}
	return wasmtype.GlobalType{Val: vt, Mut: mut}, nil
}

func readFuncType(r *wasmread.Reader) (wasmtype.FuncType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return wasmtype.FuncType{}, err
	}
	if form != 0x60 {
		return wasmtype.FuncType{}, newErr(KindInvalidFuncType, r.Pos()-1, "function type form byte must be 0x60, got 0x%x", form)
	}
	params, err := wasmread.ReadVec(r, readValType)
	if err != nil {
		return wasmtype.FuncType{}, err
	}
	results, err := wasmread.ReadVec(r, readValType)
	if err != nil {
		return wasmtype.FuncType{}, err
	}
	return wasmtype.FuncType{Params: params, Results: results}, nil
}
