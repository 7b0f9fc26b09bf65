package classfile

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Label marks a position in the code stream that branches can target.
// Labels are created and owned by one CodeAssembler.
type Label struct {
	id       int
	bound    bool
	offset   int
	targeted bool   // some branch jumps here
	state    *frame // merged verification state on entry
}

// Code is the finished output of a CodeAssembler.
type Code struct {
	MaxStack  int
	MaxLocals int
	Bytes     []byte
	StackMap  []byte // StackMapTable attribute payload, nil when no frames
	Frames    int    // number of stack map frames
}

type patch struct {
	at    int // offset of the 2-byte operand to patch
	base  int // offset of the branch instruction itself
	label *Label
}

// CodeAssembler builds one method body. Instructions are appended through
// typed emitters that maintain the verification frame, so stack map frames
// and max_stack/max_locals fall out of assembly exactly rather than being
// estimated. The first error latches: later emits are no-ops and Finish
// reports it.
type CodeAssembler struct {
	pool      *ConstPool
	className string
	method    string
	desc      string

	code        []byte
	cur         *frame // nil while the next position is unreachable
	entryLocals []VerifType
	maxStack    int
	maxLocals   int
	labels      []*Label
	patches     []patch
	err         error
}

// NewCodeAssembler starts a method body for the given member. The entry
// frame is derived from the descriptor and access flags; a constructor's
// receiver starts as uninitializedThis.
func NewCodeAssembler(pool *ConstPool, className, methodName, methodDesc string, accessFlags uint16) (*CodeAssembler, error) {
	params, _, err := SplitMethodDescriptor(methodDesc)
	if err != nil {
		return nil, err
	}
	entry := &frame{}
	slot := 0
	if accessFlags&AccStatic == 0 {
		this := vtObject(className)
		if methodName == "<init>" {
			this = VerifType{Tag: VTUninitThis}
		}
		entry.setLocal(0, this)
		slot = 1
	}
	for _, p := range params {
		entry.setLocal(slot, verifTypeOf(p))
		slot += SlotSize(p)
	}
	a := &CodeAssembler{
		pool:        pool,
		className:   className,
		method:      methodName,
		desc:        methodDesc,
		cur:         entry,
		entryLocals: compress(entry.locals),
		maxLocals:   slot,
	}
	return a, nil
}

func (a *CodeAssembler) fail(format string, args ...any) {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
}

// ready reports whether emission can proceed, latching an error when the
// current position is unreachable dead code.
func (a *CodeAssembler) ready() bool {
	if a.err != nil {
		return false
	}
	if a.cur == nil {
		a.fail("unreachable code at offset %d", len(a.code))
		return false
	}
	return true
}

func (a *CodeAssembler) push(v VerifType) {
	a.cur.push(v)
	if len(a.cur.stack) > a.maxStack {
		a.maxStack = len(a.cur.stack)
	}
}

func (a *CodeAssembler) pop() VerifType {
	v, err := a.cur.pop()
	if err != nil {
		a.fail("%v at offset %d", err, len(a.code))
	}
	return v
}

func (a *CodeAssembler) growLocals(slot int, v VerifType) {
	end := slot + 1
	if v.wide() {
		end = slot + 2
	}
	if end > a.maxLocals {
		a.maxLocals = end
	}
}

func (a *CodeAssembler) emit(op Opcode, operands ...byte) {
	a.code = append(a.code, byte(op))
	a.code = append(a.code, operands...)
}

func (a *CodeAssembler) emitU16(op Opcode, v uint16) {
	a.emit(op, byte(v>>8), byte(v))
}

// NewLabel creates an unbound label.
func (a *CodeAssembler) NewLabel() *Label {
	l := &Label{id: len(a.labels)}
	a.labels = append(a.labels, l)
	return l
}

// Offset returns the current code offset.
func (a *CodeAssembler) Offset() int {
	return len(a.code)
}

// LoadNull pushes the null reference.
func (a *CodeAssembler) LoadNull() {
	if !a.ready() {
		return
	}
	a.emit(OpAconstNull)
	a.push(vtNull)
}

// LoadInt pushes an int constant using the shortest encoding.
func (a *CodeAssembler) LoadInt(v int32) {
	if !a.ready() {
		return
	}
	switch {
	case v >= -1 && v <= 5:
		a.emit(Opcode(int32(OpIconst0) + v))
	case v >= -128 && v <= 127:
		a.emit(OpBipush, byte(v))
	case v >= -32768 && v <= 32767:
		a.emit(OpSipush, byte(v>>8), byte(v))
	default:
		a.ldc(a.pool.Int(v))
	}
	a.push(vtInt)
}

// LoadLong pushes a long constant.
func (a *CodeAssembler) LoadLong(v int64) {
	if !a.ready() {
		return
	}
	if v == 0 || v == 1 {
		a.emit(Opcode(int64(OpLconst0) + v))
	} else {
		a.emitU16(OpLdc2W, a.pool.Long(v))
	}
	a.push(vtLong)
}

// LoadFloat pushes a float constant.
func (a *CodeAssembler) LoadFloat(v float32) {
	if !a.ready() {
		return
	}
	switch v {
	case 0:
		a.emit(OpFconst0)
	case 1:
		a.emit(OpFconst1)
	case 2:
		a.emit(OpFconst2)
	default:
		a.ldc(a.pool.Float(v))
	}
	a.push(vtFloat)
}

// LoadDouble pushes a double constant.
func (a *CodeAssembler) LoadDouble(v float64) {
	if !a.ready() {
		return
	}
	if v == 0 || v == 1 {
		a.emit(Opcode(float64(OpDconst0) + v))
	} else {
		a.emitU16(OpLdc2W, a.pool.Double(v))
	}
	a.push(vtDouble)
}

// LoadString pushes a string constant.
func (a *CodeAssembler) LoadString(s string) {
	if !a.ready() {
		return
	}
	a.ldc(a.pool.String(s))
	a.push(vtObject("java/lang/String"))
}

// LoadType pushes a class literal for the given internal name.
func (a *CodeAssembler) LoadType(internalName string) {
	if !a.ready() {
		return
	}
	a.ldc(a.pool.Class(internalName))
	a.push(vtObject("java/lang/Class"))
}

func (a *CodeAssembler) ldc(index uint16) {
	if index <= 0xFF {
		a.emit(OpLdc, byte(index))
	} else {
		a.emitU16(OpLdcW, index)
	}
}

// LoadLocal pushes the local in the given slot; the opcode is chosen from
// the slot's tracked verification type.
func (a *CodeAssembler) LoadLocal(slot int) {
	if !a.ready() {
		return
	}
	v, err := a.cur.local(slot)
	if err != nil {
		a.fail("%v in %s.%s%s", err, a.className, a.method, a.desc)
		return
	}
	var base Opcode
	switch v.Tag {
	case VTInt:
		base = OpIload0
	case VTFloat:
		base = OpFload0
	case VTLong:
		base = OpLload0
	case VTDouble:
		base = OpDload0
	default:
		base = OpAload0
	}
	if slot <= 3 {
		a.emit(base + Opcode(slot))
	} else if slot <= 0xFF {
		a.emit(OpIload+(base-OpIload0)/4, byte(slot))
	} else {
		a.fail("local slot %d exceeds one-byte operand in %s.%s%s", slot, a.className, a.method, a.desc)
		return
	}
	a.push(v)
}

// StoreLocal pops the stack top into the given slot.
func (a *CodeAssembler) StoreLocal(slot int) {
	if !a.ready() {
		return
	}
	v := a.pop()
	var base Opcode
	switch v.Tag {
	case VTInt:
		base = OpIstore0
	case VTFloat:
		base = OpFstore0
	case VTLong:
		base = OpLstore0
	case VTDouble:
		base = OpDstore0
	default:
		base = OpAstore0
	}
	if slot <= 3 {
		a.emit(base + Opcode(slot))
	} else if slot <= 0xFF {
		a.emit(OpIstore+(base-OpIstore0)/4, byte(slot))
	} else {
		a.fail("local slot %d exceeds one-byte operand in %s.%s%s", slot, a.className, a.method, a.desc)
		return
	}
	a.cur.setLocal(slot, v)
	a.growLocals(slot, v)
}

// GetField pushes an instance field value.
func (a *CodeAssembler) GetField(owner, name, desc string) {
	a.fieldOp(OpGetfield, owner, name, desc)
}

// PutField pops a value and stores it into an instance field.
func (a *CodeAssembler) PutField(owner, name, desc string) {
	a.fieldOp(OpPutfield, owner, name, desc)
}

// GetStatic pushes a static field value.
func (a *CodeAssembler) GetStatic(owner, name, desc string) {
	a.fieldOp(OpGetstatic, owner, name, desc)
}

// PutStatic pops a value and stores it into a static field.
func (a *CodeAssembler) PutStatic(owner, name, desc string) {
	a.fieldOp(OpPutstatic, owner, name, desc)
}

func (a *CodeAssembler) fieldOp(op Opcode, owner, name, desc string) {
	if !a.ready() {
		return
	}
	a.emitU16(op, a.pool.Fieldref(owner, name, desc))
	switch op {
	case OpPutfield:
		a.pop() // value
		a.pop() // receiver
	case OpPutstatic:
		a.pop()
	case OpGetfield:
		a.pop()
		a.push(verifTypeOf(desc))
	case OpGetstatic:
		a.push(verifTypeOf(desc))
	}
}

// Invoke emits one of the four invocation opcodes, popping arguments and
// receiver per the descriptor and pushing the return value if any. An
// invokespecial of <init> initializes the receiver's verification type.
func (a *CodeAssembler) Invoke(op Opcode, owner, name, desc string) {
	if !a.ready() {
		return
	}
	params, ret, err := SplitMethodDescriptor(desc)
	if err != nil {
		a.fail("%v", err)
		return
	}
	switch op {
	case OpInvokeinterface:
		slots := 1
		for _, p := range params {
			slots += SlotSize(p)
		}
		idx := a.pool.InterfaceMethodref(owner, name, desc)
		a.emit(op, byte(idx>>8), byte(idx), byte(slots), 0)
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		a.emitU16(op, a.pool.Methodref(owner, name, desc))
	default:
		a.fail("opcode %s is not an invocation", op)
		return
	}
	for range params {
		a.pop()
	}
	if op != OpInvokestatic {
		receiver := a.pop()
		if op == OpInvokespecial && name == "<init>" {
			a.initialize(receiver)
		}
	}
	if ret != "V" {
		a.push(verifTypeOf(ret))
	}
}

// initialize rewrites every copy of an uninitialized receiver to its
// initialized class type after a constructor call.
func (a *CodeAssembler) initialize(receiver VerifType) {
	if receiver.Tag != VTUninit && receiver.Tag != VTUninitThis {
		return
	}
	initialized := vtObject(a.className)
	if receiver.Tag == VTUninit {
		initialized = vtObject(receiver.Class)
	}
	for i, v := range a.cur.stack {
		if v == receiver {
			a.cur.stack[i] = initialized
		}
	}
	for i, v := range a.cur.locals {
		if v == receiver {
			a.cur.locals[i] = initialized
		}
	}
}

// New emits a new instruction; the pushed reference stays uninitialized
// until its constructor runs.
func (a *CodeAssembler) New(internalName string) {
	if !a.ready() {
		return
	}
	offset := len(a.code)
	a.emitU16(OpNew, a.pool.Class(internalName))
	a.push(VerifType{Tag: VTUninit, Class: internalName, Offset: uint16(offset)})
}

// Dup duplicates the stack top.
func (a *CodeAssembler) Dup() {
	if !a.ready() {
		return
	}
	if len(a.cur.stack) == 0 {
		a.fail("dup on empty stack at offset %d", len(a.code))
		return
	}
	a.emit(OpDup)
	a.push(a.cur.stack[len(a.cur.stack)-1])
}

// Pop discards the stack top, using pop2 for wide values.
func (a *CodeAssembler) Pop() {
	if !a.ready() {
		return
	}
	v := a.pop()
	if v.wide() {
		a.emit(OpPop2)
	} else {
		a.emit(OpPop)
	}
}

// Checkcast narrows the stack top to the given class.
func (a *CodeAssembler) Checkcast(internalName string) {
	if !a.ready() {
		return
	}
	a.emitU16(OpCheckcast, a.pool.Class(internalName))
	a.pop()
	a.push(vtObject(internalName))
}

// InstanceOf replaces the stack top with an int type-test result.
func (a *CodeAssembler) InstanceOf(internalName string) {
	if !a.ready() {
		return
	}
	a.emitU16(OpInstanceof, a.pool.Class(internalName))
	a.pop()
	a.push(vtInt)
}

// Athrow throws the stack top. Code after it is unreachable.
func (a *CodeAssembler) Athrow() {
	if !a.ready() {
		return
	}
	a.emit(OpAthrow)
	a.pop()
	a.cur = nil
}

// Return emits the return opcode matching the given return descriptor,
// "V" for void.
func (a *CodeAssembler) Return(returnDesc string) {
	if !a.ready() {
		return
	}
	switch returnDesc {
	case "V":
		a.emit(OpReturn)
	case "J":
		a.emit(OpLreturn)
		a.pop()
	case "F":
		a.emit(OpFreturn)
		a.pop()
	case "D":
		a.emit(OpDreturn)
		a.pop()
	case "B", "C", "I", "S", "Z":
		a.emit(OpIreturn)
		a.pop()
	default:
		a.emit(OpAreturn)
		a.pop()
	}
	a.cur = nil
}

// Goto branches unconditionally to the label. Code after it is unreachable.
func (a *CodeAssembler) Goto(l *Label) {
	if !a.ready() {
		return
	}
	a.branchTo(OpGoto, l, a.cur)
	a.cur = nil
}

// Branch emits a conditional branch, popping its operands.
func (a *CodeAssembler) Branch(op Opcode, l *Label) {
	if !a.ready() {
		return
	}
	if !op.IsConditionalBranch() {
		a.fail("opcode %s is not a conditional branch", op)
		return
	}
	switch op {
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt,
		OpIfIcmple, OpIfAcmpeq, OpIfAcmpne:
		a.pop()
		a.pop()
	default:
		a.pop()
	}
	a.branchTo(op, l, a.cur)
}

func (a *CodeAssembler) branchTo(op Opcode, l *Label, out *frame) {
	base := len(a.code)
	a.emit(op, 0xFF, 0xFF) // placeholder offset
	l.targeted = true
	a.mergeInto(l, out)
	if l.bound {
		delta := l.offset - base
		binary.BigEndian.PutUint16(a.code[base+1:], uint16(int16(delta)))
	} else {
		a.patches = append(a.patches, patch{at: base + 1, base: base, label: l})
	}
}

func (a *CodeAssembler) mergeInto(l *Label, state *frame) {
	if a.err != nil {
		return
	}
	if l.state == nil {
		l.state = state.clone()
		return
	}
	if l.bound {
		// Code after a bound label was assembled against the label's frame,
		// so a back edge must arrive with a state that merges to exactly it.
		merged := l.state.clone()
		if err := merged.merge(state); err != nil {
			a.fail("%v at label %d in %s.%s%s", err, l.id, a.className, a.method, a.desc)
			return
		}
		if !typesEqual(merged.locals, l.state.locals) || !typesEqual(merged.stack, l.state.stack) {
			a.fail("back edge to label %d changes its frame in %s.%s%s", l.id, a.className, a.method, a.desc)
		}
		return
	}
	if err := l.state.merge(state); err != nil {
		a.fail("%v at label %d in %s.%s%s", err, l.id, a.className, a.method, a.desc)
	}
}

// Bind fixes the label at the current offset. The verification state at the
// label is the merge of every branch that targets it and, when reachable,
// the fall-through state.
func (a *CodeAssembler) Bind(l *Label) {
	if a.err != nil {
		return
	}
	if l.bound {
		a.fail("label %d bound twice", l.id)
		return
	}
	if a.cur != nil {
		a.mergeInto(l, a.cur)
	}
	l.bound = true
	l.offset = len(a.code)
	if l.state == nil {
		a.fail("label %d bound with no incoming control flow", l.id)
		return
	}
	a.cur = l.state.clone()
	if len(a.cur.stack) > a.maxStack {
		a.maxStack = len(a.cur.stack)
	}
	if len(a.cur.locals) > a.maxLocals {
		a.maxLocals = len(a.cur.locals)
	}
}

// compressStack converts the slot-based operand stack into per-value form.
func compressStack(slots []VerifType) []VerifType {
	var out []VerifType
	for i := 0; i < len(slots); i++ {
		v := slots[i]
		out = append(out, v)
		if v.wide() {
			i++
		}
	}
	return out
}

// Finish resolves forward branches, computes the StackMapTable payload and
// returns the completed body. The method must end with terminated control
// flow and every targeted label must be bound.
func (a *CodeAssembler) Finish() (*Code, error) {
	if a.err == nil && a.cur != nil {
		a.fail("control flow falls off the end of %s.%s%s", a.className, a.method, a.desc)
	}
	if a.err == nil {
		for _, l := range a.labels {
			if l.targeted && !l.bound {
				a.fail("branch to unbound label %d in %s.%s%s", l.id, a.className, a.method, a.desc)
			}
		}
	}
	if a.err == nil && len(a.code) > MaxCodeLength {
		a.fail("method body of %d bytes exceeds the %d byte limit", len(a.code), MaxCodeLength)
	}
	if a.err != nil {
		return nil, a.err
	}
	for _, p := range a.patches {
		delta := p.label.offset - p.base
		if delta > 32767 || delta < -32768 {
			return nil, fmt.Errorf("branch offset %d out of 16-bit range in %s.%s%s",
				delta, a.className, a.method, a.desc)
		}
		binary.BigEndian.PutUint16(a.code[p.at:], uint16(int16(delta)))
	}

	out := &Code{
		MaxStack:  a.maxStack,
		MaxLocals: a.maxLocals,
		Bytes:     a.code,
	}
	var frames []stackFrame
	for _, l := range a.labels {
		if l.targeted && l.bound {
			frames = append(frames, stackFrame{
				offset: l.offset,
				locals: compress(l.state.locals),
				stack:  compressStack(l.state.stack),
			})
		}
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].offset < frames[j].offset })
	if len(frames) > 0 {
		out.StackMap = encodeStackMapTable(frames, a.entryLocals, a.pool)
		out.Frames = len(frames)
	}
	return out, nil
}
