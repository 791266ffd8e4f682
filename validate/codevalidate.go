package validate

import (
	"github.com/vertexdlt/vertexvm-engine/opcode"
	"github.com/vertexdlt/vertexvm-engine/sidetable"
	"github.com/vertexdlt/vertexvm-engine/wasmtype"
)

// unknownType is the polymorphic-bottom marker: a reserved ValType byte
// value (0x00, not used by any real value type) standing in for "any type"
// once a frame goes unreachable. Popping it off an empty, unreachable
// operand stack yields itself instead of failing.
const unknownType wasmtype.ValType = 0x00

// ctrlFrame mirrors the Wasm spec appendix's validation-algorithm control
// frame: the frame's label-input types, the block's result types, the
// operand-stack height when the frame was entered (right after popping the
// frame's own parameters), whether the frame has gone stack-polymorphic,
// and — for sidetable construction — every pending branch whose target is
// this frame.
type ctrlFrame struct {
	op         opcode.Opcode // Block, Loop, If, Else, or 0 for the function body
	startTypes []wasmtype.ValType
	endTypes   []wasmtype.ValType
	height     int
	unreachable bool

	// loopHeadIP/loopHeadSTP record the instruction/sidetable position of a
	// loop's own head, so branches back to it resolve immediately rather
	// than waiting on `pending`.
	loopHeadIP  int32
	loopHeadSTP int32

	// elseSeen marks an `if` frame that has reached its `else` opcode, so
	// `end` knows whether it still owes the implicit empty-else patch.
	elseSeen bool
	ifJumpRef sidetable.Ref
	ifHasJumpRef bool

	// pending holds sidetable.Ref values for branches targeting this
	// frame, patched once the frame's target position is reached: on
	// `loop`, the target is the frame's own head (resolved immediately
	// when the frame is pushed); on `block`/`if`, the target is the
	// frame's `end` (resolved when the frame is popped); `else` also
	// resolves the `if`'s taken-false branch to its own start.
	pending []sidetable.Ref
}

// labelTypes returns the arity/types a branch to this frame must leave on
// the stack: a loop's label continues at its own head, so branching to it
// expects the loop's *parameter* types; every other frame's label is its
// end, so branching expects its *result* types.
func (f *ctrlFrame) labelTypes() []wasmtype.ValType {
	if f.op == opcode.Loop {
		return f.startTypes
	}
	return f.endTypes
}

type funcValidator struct {
	info      *Info
	sb        *sidetable.Builder
	types     []wasmtype.ValType // params ++ declared locals
	numParams int

	opds  []wasmtype.ValType
	ctrls []*ctrlFrame
}

func newFuncValidator(info *Info, sb *sidetable.Builder, params, locals []wasmtype.ValType) *funcValidator {
	fv := &funcValidator{info: info, sb: sb, numParams: len(params)}
	fv.types = append(append([]wasmtype.ValType{}, params...), locals...)
	return fv
}

func (fv *funcValidator) pushOpd(t wasmtype.ValType) {
	fv.opds = append(fv.opds, t)
}

func (fv *funcValidator) pushOpds(ts []wasmtype.ValType) {
	for _, t := range ts {
		fv.pushOpd(t)
	}
}

func (fv *funcValidator) popOpd(offset int) (wasmtype.ValType, error) {
	top := fv.ctrls[len(fv.ctrls)-1]
	if len(fv.opds) == top.height {
		if top.unreachable {
			return unknownType, nil
		}
		return 0, newErr(KindOperandStackMismatch, offset, "operand stack underflow")
	}
	v := fv.opds[len(fv.opds)-1]
	fv.opds = fv.opds[:len(fv.opds)-1]
	return v, nil
}

func (fv *funcValidator) popOpdExpect(offset int, want wasmtype.ValType) (wasmtype.ValType, error) {
	got, err := fv.popOpd(offset)
	if err != nil {
		return 0, err
	}
	if got == unknownType {
		return want, nil
	}
	if want == unknownType {
		return got, nil
	}
	if got != want {
		return 0, newErr(KindOperandStackMismatch, offset, "expected %v on the operand stack, found %v", want, got)
	}
	return got, nil
}

func (fv *funcValidator) popOpds(offset int, ts []wasmtype.ValType) error {
	for i := len(ts) - 1; i >= 0; i-- {
		if _, err := fv.popOpdExpect(offset, ts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (fv *funcValidator) pushCtrl(op opcode.Opcode, in, out []wasmtype.ValType, ip, stp int) *ctrlFrame {
	f := &ctrlFrame{op: op, startTypes: in, endTypes: out, height: len(fv.opds), loopHeadIP: int32(ip), loopHeadSTP: int32(stp)}
	fv.ctrls = append(fv.ctrls, f)
	fv.pushOpds(in)
	return f
}

func (fv *funcValidator) popCtrl(offset int) (*ctrlFrame, error) {
	if len(fv.ctrls) == 0 {
		return nil, newErr(KindBlockArityMismatch, offset, "no control frame to end")
	}
	top := fv.ctrls[len(fv.ctrls)-1]
	if err := fv.popOpds(offset, top.endTypes); err != nil {
		return nil, err
	}
	if len(fv.opds) != top.height {
		return nil, newErr(KindBlockArityMismatch, offset, "operand stack height mismatch at end of block")
	}
	fv.ctrls = fv.ctrls[:len(fv.ctrls)-1]
	return top, nil
}

func (fv *funcValidator) markUnreachable() {
	top := fv.ctrls[len(fv.ctrls)-1]
	fv.opds = fv.opds[:top.height]
	top.unreachable = true
}

// frameAt returns the control frame `depth` levels up from the innermost
// (depth 0 = innermost), per the br/br_if/br_table label-index convention.
func (fv *funcValidator) frameAt(depth uint32) (*ctrlFrame, bool) {
	idx := len(fv.ctrls) - 1 - int(depth)
	if idx < 0 {
		return nil, false
	}
	return fv.ctrls[idx], true
}

// emitBranch appends a sidetable entry targeting the control frame `depth`
// levels up and records it as pending on that frame so its Δpc/Δstp get
// patched once the frame's target is reached.
func (fv *funcValidator) emitBranch(offset int, depth uint32) error {
	frame, ok := fv.frameAt(depth)
	if !ok {
		return newErr(KindBlockArityMismatch, offset, "branch depth %d exceeds enclosing block nesting", depth)
	}
	label := frame.labelTypes()
	if err := checkBranchTypes(fv, offset, label); err != nil {
		return err
	}
	valCount := uint32(len(label))
	popCount := uint32(len(fv.opds)-frame.height) - valCount
	ref := fv.sb.Append(offset, valCount, popCount)
	if frame.op == opcode.Loop {
		// loop's target is its own head: resolved immediately since the
		// head's ip/stp were already fixed when the loop frame was pushed.
		fv.sb.Patch(ref, int(frame.loopHeadIP), int(frame.loopHeadSTP))
	} else {
		frame.pending = append(frame.pending, ref)
	}
	return nil
}

// checkBranchTypes verifies (without popping, since a branch that is not
// taken leaves the operand stack alone for the surrounding straight-line
// code) that the operand stack's top matches the target label's arity,
// without mutating fv.opds permanently.
func checkBranchTypes(fv *funcValidator, offset int, label []wasmtype.ValType) error {
	saved := append([]wasmtype.ValType{}, fv.opds...)
	err := fv.popOpds(offset, label)
	fv.opds = saved
	return err
}
