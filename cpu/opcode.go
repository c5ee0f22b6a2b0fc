package cpu

import (
	"fmt"
	"strings"
)

// Opcode is an operation code, the two low decimal digits of an
// instruction word.
type Opcode int64

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_ADD  = Opcode(1)  // add
	OP_MUL  = Opcode(2)  // mul
	OP_IN   = Opcode(3)  // in
	OP_OUT  = Opcode(4)  // out
	OP_JT   = Opcode(5)  // jt
	OP_JF   = Opcode(6)  // jf
	OP_LT   = Opcode(7)  // lt
	OP_EQ   = Opcode(8)  // eq
	OP_ARB  = Opcode(9)  // arb
	OP_HALT = Opcode(99) // halt
)

// opcodeOperands is the operand count of each valid opcode.
var opcodeOperands = map[Opcode]int{
	OP_ADD:  3,
	OP_MUL:  3,
	OP_IN:   1,
	OP_OUT:  1,
	OP_JT:   2,
	OP_JF:   2,
	OP_LT:   3,
	OP_EQ:   3,
	OP_ARB:  1,
	OP_HALT: 0,
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeOperands[op]
	return ok
}

// Operands returns the number of operand words that follow the opcode word.
func (op Opcode) Operands() int {
	return opcodeOperands[op]
}

// Writes returns true if the last operand of the opcode is a write target.
func (op Opcode) Writes() bool {
	switch op {
	case OP_ADD, OP_MUL, OP_IN, OP_LT, OP_EQ:
		return true
	}
	return false
}

// CodeMode is an operand addressing mode.
type CodeMode int64

//go:generate go tool stringer -linecomment -type=CodeMode
const (
	MODE_POSITION  = CodeMode(0) // position
	MODE_IMMEDIATE = CodeMode(1) // immediate
	MODE_RELATIVE  = CodeMode(2) // relative
)

// Valid returns true for the three defined addressing modes.
func (mode CodeMode) Valid() bool {
	return mode >= MODE_POSITION && mode <= MODE_RELATIVE
}

// modeDivisor is the decimal place of each operand's mode digit.
var modeDivisor = [3]int64{100, 1000, 10000}

// Code is a single instruction word with the operand words following it.
type Code struct {
	Word     int64
	Operands []int64
}

// MakeCode creates an instruction from an opcode, per-operand modes and
// operand words. Missing modes are position mode.
func MakeCode(op Opcode, modes []CodeMode, operands ...int64) Code {
	word := int64(op)
	for n, mode := range modes {
		if n >= len(modeDivisor) {
			break
		}
		word += int64(mode) * modeDivisor[n]
	}

	return Code{
		Word:     word,
		Operands: operands,
	}
}

// Opcode returns the operation code of the instruction word.
func (code Code) Opcode() Opcode {
	return Opcode(code.Word % 100)
}

// Mode returns the addressing mode of the n'th (zero based) operand.
func (code Code) Mode(n int) CodeMode {
	if n < 0 || n >= len(modeDivisor) {
		return MODE_POSITION
	}
	return CodeMode(code.Word / modeDivisor[n] % 10)
}

// Len returns the number of memory words occupied by the instruction.
func (code Code) Len() int {
	return 1 + len(code.Operands)
}

// Words returns the instruction as it is laid out in memory.
func (code Code) Words() (words []int64) {
	words = make([]int64, 0, code.Len())
	words = append(words, code.Word)
	words = append(words, code.Operands...)
	return
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Opcode()
	if !op.Valid() || len(code.Operands) != op.Operands() || !validModes(code, len(code.Operands)) {
		return fmt.Sprintf(".data %d", code.Word)
	}

	words := []string{op.String()}
	for n, arg := range code.Operands {
		switch code.Mode(n) {
		case MODE_POSITION:
			words = append(words, fmt.Sprintf("[%d]", arg))
		case MODE_IMMEDIATE:
			words = append(words, fmt.Sprintf("%d", arg))
		case MODE_RELATIVE:
			words = append(words, fmt.Sprintf("[rb%+d]", arg))
		}
	}

	out = strings.Join(words, " ")
	return
}

// State is the execution state of a machine.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING   = State(0) // running
	STATE_SUSPENDED = State(1) // suspended
	STATE_HALTED    = State(2) // halted
)
