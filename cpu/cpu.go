package cpu

import (
	"context"
	"fmt"
	"log"
)

// NO_OUTPUT is the last output value before any output instruction ran.
const NO_OUTPUT = int64(-1)

// CONTEXT_TICKS is the number of instructions run by ExecuteContext between
// checks of its context.
const CONTEXT_TICKS = 1024

// Cpu is the simulation context for a single machine instance.
//
// A Cpu is not safe for concurrent use.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory *Memory // Program and scratch memory.

	Ip     int64 // Current instruction pointer.
	Base   int64 // Relative base register.
	Output int64 // Most recent output value.
	State  State // Execution state.

	Ticks  int // Instructions executed.
	Inputs int // Input values consumed.

	queue []int64 // Inputs supplied to the current Execute call.
}

// NewCpu creates a new machine loaded with a program image.
func NewCpu(image []int64) (cpu *Cpu) {
	cpu = &Cpu{
		Memory: NewMemory(image),
		Output: NO_OUTPUT,
	}

	return
}

// Clone returns an independent copy of the machine, memory included.
func (cpu *Cpu) Clone() *Cpu {
	return &Cpu{
		Verbose: cpu.Verbose,
		Memory:  cpu.Memory.Clone(),
		Ip:      cpu.Ip,
		Base:    cpu.Base,
		Output:  cpu.Output,
		State:   cpu.State,
		Ticks:   cpu.Ticks,
		Inputs:  cpu.Inputs,
	}
}

// Halted returns true once the machine has executed a halt instruction.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"ip", "base", "output", "state", "ticks", "inputs",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "ip":
			strval = fmt.Sprintf("%d", cpu.Ip)
		case "base":
			strval = fmt.Sprintf("%d", cpu.Base)
		case "output":
			strval = fmt.Sprintf("%d", cpu.Output)
		case "state":
			strval = cpu.State.String()
		case "ticks":
			strval = fmt.Sprintf("%d", cpu.Ticks)
		case "inputs":
			strval = fmt.Sprintf("%d", cpu.Inputs)
		}
		text += fmt.Sprintf("% 6s: %v\n", reg, strval)
	}

	return
}

// FetchCode fetches the instruction at the IP, with its operand words.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	word, err := cpu.Memory.Read(cpu.Ip)
	if err != nil {
		return
	}

	code = Code{Word: word}

	op := code.Opcode()
	if !op.Valid() {
		err = ErrOpcode(word)
		return
	}

	count := op.Operands()
	var operands []int64
	for n := range count {
		var operand int64
		operand, err = cpu.Memory.Read(cpu.Ip + 1 + int64(n))
		if err != nil {
			return
		}
		operands = append(operands, operand)
	}
	code.Operands = operands

	return
}

// Tick executes a single instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		err = &ErrInstruction{Ip: cpu.Ip, Code: code, Err: err}
		return
	}

	err = cpu.Step(code)
	return
}

// Execute runs the machine until it outputs a value or halts, consuming
// inputs in order for every input instruction reached.
//
// The returned value is the most recent output, from this call or an
// earlier one. Inputs left unconsumed when the call returns are discarded.
// A halted machine returns the same (value, true) pair on every call.
//
// Faults leave the IP on the faulting instruction with memory unchanged,
// so a call that fails with ErrInputUnderflow may be retried with more
// input.
func (cpu *Cpu) Execute(inputs ...int64) (value int64, halted bool, err error) {
	return cpu.ExecuteContext(context.Background(), inputs...)
}

// ExecuteContext is Execute, stopping with the context error once the
// context is done. The machine is left between instructions, so it may be
// resumed by a later call.
func (cpu *Cpu) ExecuteContext(ctx context.Context, inputs ...int64) (value int64, halted bool, err error) {
	cpu.queue = inputs
	defer func() {
		cpu.queue = nil
		value = cpu.Output
	}()

	if cpu.State == STATE_SUSPENDED {
		cpu.State = STATE_RUNNING
	}

	for n := 0; ; n++ {
		if n%CONTEXT_TICKS == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		err = cpu.Tick()
		if err != nil {
			return
		}

		switch cpu.State {
		case STATE_SUSPENDED:
			return
		case STATE_HALTED:
			halted = true
			return
		}
	}
}

// Step executes a single decoded instruction.
func (cpu *Cpu) Step(code Code) (err error) {
	defer func() {
		if err != nil {
			err = &ErrInstruction{Ip: cpu.Ip, Code: code, Err: err}
		}
	}()

	if cpu.Verbose {
		log.Printf("%04d: %v", cpu.Ip, code)
	}

	op := code.Opcode()
	if !op.Valid() {
		err = ErrOpcode(code.Word)
		return
	}
	if len(code.Operands) != op.Operands() {
		err = ErrOpcode(code.Word)
		return
	}

	next_ip := cpu.Ip + int64(code.Len())
	state := STATE_RUNNING

	switch op {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		var a, b, dst int64
		a, err = cpu.getValue(code, 0)
		if err != nil {
			return
		}
		b, err = cpu.getValue(code, 1)
		if err != nil {
			return
		}
		dst, err = cpu.getAddress(code, 2)
		if err != nil {
			return
		}
		cpu.Memory.Write(dst, doAlu(op, a, b))
	case OP_IN:
		var dst int64
		dst, err = cpu.getAddress(code, 0)
		if err != nil {
			return
		}
		if len(cpu.queue) == 0 {
			err = ErrInputUnderflow
			return
		}
		input := cpu.queue[0]
		cpu.queue = cpu.queue[1:]
		if cpu.Verbose {
			log.Printf("cpu: input %d to %d", input, dst)
		}
		cpu.Memory.Write(dst, input)
		cpu.Inputs++
	case OP_OUT:
		var a int64
		a, err = cpu.getValue(code, 0)
		if err != nil {
			return
		}
		if cpu.Verbose {
			log.Printf("cpu: output %d", a)
		}
		cpu.Output = a
		state = STATE_SUSPENDED
	case OP_JT, OP_JF:
		var a, target int64
		a, err = cpu.getValue(code, 0)
		if err != nil {
			return
		}
		target, err = cpu.getValue(code, 1)
		if err != nil {
			return
		}
		if (a != 0) == (op == OP_JT) {
			next_ip = target
		}
	case OP_ARB:
		var a int64
		a, err = cpu.getValue(code, 0)
		if err != nil {
			return
		}
		if cpu.Verbose {
			log.Printf("cpu: base %d%+d", cpu.Base, a)
		}
		cpu.Base += a
	case OP_HALT:
		// Stay on the halt, so that resuming halts again.
		next_ip = cpu.Ip
		state = STATE_HALTED
		if cpu.Verbose {
			log.Printf("cpu: halt, output %d", cpu.Output)
		}
	}

	cpu.Ip = next_ip
	cpu.State = state
	cpu.Ticks++

	return
}

// getValue resolves the n'th operand of an instruction to the value it
// refers to.
func (cpu *Cpu) getValue(code Code, n int) (value int64, err error) {
	arg := code.Operands[n]

	switch mode := code.Mode(n); mode {
	case MODE_POSITION:
		value, err = cpu.Memory.Read(arg)
	case MODE_IMMEDIATE:
		value = arg
	case MODE_RELATIVE:
		value, err = cpu.Memory.Read(cpu.Base + arg)
	default:
		err = ErrMode(mode)
	}

	return
}

// getAddress resolves the n'th operand of an instruction to a write address.
// Immediate mode is not rejected; it resolves the same as position mode.
func (cpu *Cpu) getAddress(code Code, n int) (addr int64, err error) {
	arg := code.Operands[n]

	switch mode := code.Mode(n); mode {
	case MODE_POSITION, MODE_IMMEDIATE:
		addr = arg
	case MODE_RELATIVE:
		addr = cpu.Base + arg
	default:
		err = ErrMode(mode)
	}

	return
}

// doAlu performs the requested arithmetic or comparison, and returns the
// output value.
func doAlu(op Opcode, a int64, b int64) (output int64) {
	switch op {
	case OP_ADD:
		output = a + b
	case OP_MUL:
		output = a * b
	case OP_LT:
		if a < b {
			output = 1
		}
	case OP_EQ:
		if a == b {
			output = 1
		}
	}

	return
}
