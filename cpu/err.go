package cpu

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrOpcodeInvalid  = errors.New(f("opcode invalid"))
	ErrModeInvalid    = errors.New(f("mode invalid"))
	ErrInputUnderflow = errors.New(f("input underflow"))
	ErrMemoryFault    = errors.New(f("memory fault"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrEquateLoop         = errors.New(f(".equ refers to itself"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelReserved      = errors.New(f("label reserved"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrTargetImmediate    = errors.New(f("write target is immediate"))
)

// ErrAddress is a read of a memory address that was never written.
type ErrAddress int64

func (ea ErrAddress) Error() string {
	return f("address %d unset", int64(ea))
}

func (ea ErrAddress) Unwrap() error {
	return ErrMemoryFault
}

// ErrOpcode is an instruction word whose opcode is not in the instruction set.
type ErrOpcode int64

func (eo ErrOpcode) Error() string {
	return f("bad opcode %d in word %d", int64(eo)%100, int64(eo))
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	if err == ErrOpcodeInvalid {
		return true
	}
	_, ok = err.(ErrOpcode)
	return
}

// ErrMode is an operand addressing mode that is not defined.
type ErrMode CodeMode

func (em ErrMode) Error() string {
	return f("bad mode %d", int64(em))
}

func (em ErrMode) Unwrap() error {
	return ErrModeInvalid
}

// ErrInstruction indicates the instruction that faulted.
type ErrInstruction struct {
	Ip   int64
	Code Code
	Err  error
}

func (err *ErrInstruction) Error() string {
	op := err.Code.Opcode()
	if !op.Valid() || len(err.Code.Operands) != op.Operands() {
		// Not a complete instruction.
		return f("ip %d %v", err.Ip, err.Err)
	}
	return f("ip %d '%v' %v", err.Ip, err.Code, err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not an operand", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
