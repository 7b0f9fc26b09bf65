package classfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// operand widths for the supported opcode surface, keyed by opcode.
// Branches are handled separately so their targets can be printed.
func operandWidth(op Opcode) int {
	switch op {
	case OpBipush, OpLdc, OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		return 1
	case OpSipush, OpLdcW, OpLdc2W, OpGetstatic, OpPutstatic, OpGetfield,
		OpPutfield, OpInvokevirtual, OpInvokespecial, OpInvokestatic,
		OpNew, OpCheckcast, OpInstanceof:
		return 2
	case OpInvokeinterface:
		return 4
	}
	return 0
}

// FormatCode returns a human-readable listing of a method body, one
// instruction per line with offsets. Unknown opcodes stop the listing with
// a marker rather than guessing at operand widths.
func FormatCode(code []byte) string {
	var sb strings.Builder
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		sb.WriteString(fmt.Sprintf("%4d: %s", pos, op))
		switch {
		case op.IsBranch():
			if pos+3 > len(code) {
				sb.WriteString(" <truncated>\n")
				return sb.String()
			}
			delta := int(int16(binary.BigEndian.Uint16(code[pos+1:])))
			sb.WriteString(fmt.Sprintf(" %d", pos+delta))
			pos += 3
		case opcodeNames[op] == "":
			sb.WriteString(" <unsupported opcode, listing stopped>\n")
			return sb.String()
		default:
			width := operandWidth(op)
			if pos+1+width > len(code) {
				sb.WriteString(" <truncated>\n")
				return sb.String()
			}
			switch width {
			case 1:
				sb.WriteString(fmt.Sprintf(" %d", code[pos+1]))
			case 2:
				sb.WriteString(fmt.Sprintf(" #%d", binary.BigEndian.Uint16(code[pos+1:])))
			case 4:
				sb.WriteString(fmt.Sprintf(" #%d count=%d",
					binary.BigEndian.Uint16(code[pos+1:]), code[pos+3]))
			}
			pos += 1 + width
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
