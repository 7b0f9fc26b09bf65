package classfile

import "fmt"

// Opcode is a JVM instruction opcode. Only the surface the composition
// engine's appenders emit is named here; the assembler rejects anything
// else rather than guess at stack effects.
type Opcode byte

const (
	OpNop         Opcode = 0x00
	OpAconstNull  Opcode = 0x01
	OpIconstM1    Opcode = 0x02
	OpIconst0     Opcode = 0x03
	OpIconst1     Opcode = 0x04
	OpIconst2     Opcode = 0x05
	OpIconst3     Opcode = 0x06
	OpIconst4     Opcode = 0x07
	OpIconst5     Opcode = 0x08
	OpLconst0     Opcode = 0x09
	OpLconst1     Opcode = 0x0A
	OpFconst0     Opcode = 0x0B
	OpFconst1     Opcode = 0x0C
	OpFconst2     Opcode = 0x0D
	OpDconst0     Opcode = 0x0E
	OpDconst1     Opcode = 0x0F
	OpBipush      Opcode = 0x10
	OpSipush      Opcode = 0x11
	OpLdc         Opcode = 0x12
	OpLdcW        Opcode = 0x13
	OpLdc2W       Opcode = 0x14
	OpIload       Opcode = 0x15
	OpLload       Opcode = 0x16
	OpFload       Opcode = 0x17
	OpDload       Opcode = 0x18
	OpAload       Opcode = 0x19
	OpIload0      Opcode = 0x1A
	OpLload0      Opcode = 0x1E
	OpFload0      Opcode = 0x22
	OpDload0      Opcode = 0x26
	OpAload0      Opcode = 0x2A
	OpIstore      Opcode = 0x36
	OpLstore      Opcode = 0x37
	OpFstore      Opcode = 0x38
	OpDstore      Opcode = 0x39
	OpAstore      Opcode = 0x3A
	OpIstore0     Opcode = 0x3B
	OpLstore0     Opcode = 0x3F
	OpFstore0     Opcode = 0x43
	OpDstore0     Opcode = 0x47
	OpAstore0     Opcode = 0x4B
	OpPop         Opcode = 0x57
	OpPop2        Opcode = 0x58
	OpDup         Opcode = 0x59
	OpDupX1       Opcode = 0x5A
	OpSwap        Opcode = 0x5F
	OpIfeq        Opcode = 0x99
	OpIfne        Opcode = 0x9A
	OpIflt        Opcode = 0x9B
	OpIfge        Opcode = 0x9C
	OpIfgt        Opcode = 0x9D
	OpIfle        Opcode = 0x9E
	OpIfIcmpeq    Opcode = 0x9F
	OpIfIcmpne    Opcode = 0xA0
	OpIfIcmplt    Opcode = 0xA1
	OpIfIcmpge    Opcode = 0xA2
	OpIfIcmpgt    Opcode = 0xA3
	OpIfIcmple    Opcode = 0xA4
	OpIfAcmpeq    Opcode = 0xA5
	OpIfAcmpne    Opcode = 0xA6
	OpGoto        Opcode = 0xA7
	OpIreturn     Opcode = 0xAC
	OpLreturn     Opcode = 0xAD
	OpFreturn     Opcode = 0xAE
	OpDreturn     Opcode = 0xAF
	OpAreturn     Opcode = 0xB0
	OpReturn      Opcode = 0xB1
	OpGetstatic   Opcode = 0xB2
	OpPutstatic   Opcode = 0xB3
	OpGetfield    Opcode = 0xB4
	OpPutfield    Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9
	OpNew         Opcode = 0xBB
	OpAthrow      Opcode = 0xBF
	OpCheckcast   Opcode = 0xC0
	OpInstanceof  Opcode = 0xC1
	OpIfnull      Opcode = 0xC6
	OpIfnonnull   Opcode = 0xC7
)

var opcodeNames = map[Opcode]string{
	OpNop: "nop", OpAconstNull: "aconst_null",
	OpIconstM1: "iconst_m1", OpIconst0: "iconst_0", OpIconst1: "iconst_1",
	OpIconst2: "iconst_2", OpIconst3: "iconst_3", OpIconst4: "iconst_4",
	OpIconst5: "iconst_5",
	OpLconst0: "lconst_0", OpLconst1: "lconst_1",
	OpFconst0: "fconst_0", OpFconst1: "fconst_1", OpFconst2: "fconst_2",
	OpDconst0: "dconst_0", OpDconst1: "dconst_1",
	OpBipush: "bipush", OpSipush: "sipush",
	OpLdc: "ldc", OpLdcW: "ldc_w", OpLdc2W: "ldc2_w",
	OpIload: "iload", OpLload: "lload", OpFload: "fload", OpDload: "dload",
	OpAload: "aload",
	OpIstore: "istore", OpLstore: "lstore", OpFstore: "fstore",
	OpDstore: "dstore", OpAstore: "astore",
	OpPop: "pop", OpPop2: "pop2", OpDup: "dup", OpDupX1: "dup_x1", OpSwap: "swap",
	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge",
	OpIfgt: "ifgt", OpIfle: "ifle",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
	OpIfAcmpeq: "if_acmpeq", OpIfAcmpne: "if_acmpne",
	OpGoto: "goto",
	OpIreturn: "ireturn", OpLreturn: "lreturn", OpFreturn: "freturn",
	OpDreturn: "dreturn", OpAreturn: "areturn", OpReturn: "return",
	OpGetstatic: "getstatic", OpPutstatic: "putstatic",
	OpGetfield: "getfield", OpPutfield: "putfield",
	OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial",
	OpInvokestatic: "invokestatic", OpInvokeinterface: "invokeinterface",
	OpNew: "new", OpAthrow: "athrow",
	OpCheckcast: "checkcast", OpInstanceof: "instanceof",
	OpIfnull: "ifnull", OpIfnonnull: "ifnonnull",
}

// String returns the JVMS mnemonic for the opcode.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// IsBranch reports whether the opcode takes a 16-bit branch offset operand.
func (op Opcode) IsBranch() bool {
	switch {
	case op >= OpIfeq && op <= OpGoto:
		return true
	case op == OpIfnull || op == OpIfnonnull:
		return true
	}
	return false
}

// IsConditionalBranch reports whether execution can fall through the opcode.
func (op Opcode) IsConditionalBranch() bool {
	return op.IsBranch() && op != OpGoto
}

// EndsFlow reports whether the opcode unconditionally leaves the method or
// transfers control elsewhere, so the next instruction is only reachable via
// a branch target.
func (op Opcode) EndsFlow() bool {
	switch op {
	case OpGoto, OpAthrow, OpIreturn, OpLreturn, OpFreturn, OpDreturn,
		OpAreturn, OpReturn:
		return true
	}
	return false
}
