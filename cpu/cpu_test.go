package cpu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// runAll executes a machine to halt, feeding one input per call, and
// returns every output.
func runAll(t *testing.T, cpu *Cpu, inputs ...int64) (outputs []int64) {
	for range 10000 {
		value, halted, err := cpu.Execute(inputs...)
		inputs = nil
		if err != nil {
			t.Fatalf("%v", err)
		}
		if halted {
			return
		}
		outputs = append(outputs, value)
	}

	t.Fatalf("did not halt")
	return
}

func TestCpu(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	assert.Equal(int64(0), cpu.Ip)
	assert.Equal(int64(0), cpu.Base)
	assert.Equal(NO_OUTPUT, cpu.Output)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.False(cpu.Halted())
	assert.Contains(cpu.String(), "output: -1")

	_, _, err := cpu.Execute()
	assert.ErrorIs(err, ErrMemoryFault)
}

func TestCpuMemoryResult(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		image []int64
		addr  int64
		value int64
	}){
		{[]int64{1, 9, 10, 3, 2, 3, 11, 0, 99, 30, 40, 50}, 0, 3500},
		{[]int64{1, 0, 0, 0, 99}, 0, 2},
		{[]int64{2, 3, 0, 3, 99}, 3, 6},
		{[]int64{2, 4, 4, 5, 99, 0}, 5, 9801},
		{[]int64{1, 1, 1, 4, 99, 5, 6, 0, 99}, 0, 30},
		{[]int64{1101, 100, -1, 4, 0}, 4, 99},
	}

	for _, entry := range table {
		cpu := NewCpu(entry.image)
		value, halted, err := cpu.Execute()
		assert.NoError(err, entry.image)
		assert.True(halted, entry.image)
		assert.Equal(NO_OUTPUT, value, entry.image)

		mem, err := cpu.Memory.Read(entry.addr)
		assert.NoError(err)
		assert.Equal(entry.value, mem, entry.image)
	}
}

func TestCpuOutput(t *testing.T) {
	assert := assert.New(t)

	quine := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	cpu := NewCpu(quine)
	cpu.Memory.ZeroFill = true
	assert.Equal(quine, runAll(t, cpu))

	// Address 100 is read before it is ever written.
	cpu = NewCpu(quine)
	value, _, err := cpu.Execute()
	assert.NoError(err)
	assert.Equal(int64(109), value)
	_, _, err = cpu.Execute()
	assert.ErrorIs(err, ErrAddress(100))
	assert.Equal(int64(4), cpu.Ip)

	assert.Equal([]int64{1125899906842624}, runAll(t, NewCpu([]int64{104, 1125899906842624, 99})))

	outputs := runAll(t, NewCpu([]int64{1102, 34915192, 34915192, 7, 4, 7, 99, 0}))
	if assert.Len(outputs, 1) {
		assert.Equal(int64(1219070632396864), outputs[0])
	}
}

func TestCpuCompare(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		image  []int64
		input  int64
		output int64
	}){
		// Equal to 8, position mode
		{[]int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 8, 1},
		{[]int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 7, 0},
		// Less than 8, position mode
		{[]int64{3, 9, 7, 9, 10, 9, 4, 9, 99, -1, 8}, 7, 1},
		{[]int64{3, 9, 7, 9, 10, 9, 4, 9, 99, -1, 8}, 8, 0},
		// Equal to 8, immediate mode
		{[]int64{3, 3, 1108, -1, 8, 3, 4, 3, 99}, 8, 1},
		{[]int64{3, 3, 1108, -1, 8, 3, 4, 3, 99}, 9, 0},
		// Less than 8, immediate mode
		{[]int64{3, 3, 1107, -1, 8, 3, 4, 3, 99}, -5, 1},
		{[]int64{3, 3, 1107, -1, 8, 3, 4, 3, 99}, 8, 0},
		// Jumps
		{[]int64{3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9}, 0, 0},
		{[]int64{3, 12, 6, 12, 15, 1, 13, 14, 13, 4, 13, 99, -1, 0, 1, 9}, 3, 1},
		{[]int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1}, 0, 0},
		{[]int64{3, 3, 1105, -1, 9, 1101, 0, 0, 12, 4, 12, 99, 1}, -3, 1},
	}

	for _, entry := range table {
		cpu := NewCpu(entry.image)
		value, halted, err := cpu.Execute(entry.input)
		assert.NoError(err, entry.image)
		assert.False(halted)
		assert.Equal(entry.output, value, entry.image)

		value, halted, err = cpu.Execute()
		assert.NoError(err)
		assert.True(halted)
		assert.Equal(entry.output, value)
	}
}

func TestCpuCompareEight(t *testing.T) {
	assert := assert.New(t)

	image := []int64{
		3, 21, 1008, 21, 8, 20, 1005, 20, 22, 107, 8, 21, 20, 1006, 20, 31,
		1106, 0, 36, 98, 0, 0, 1002, 21, 125, 20, 4, 20, 1105, 1, 46, 104,
		999, 1105, 1, 46, 1101, 1000, 1, 20, 4, 20, 1105, 1, 46, 98, 99,
	}

	for input, output := range map[int64]int64{7: 999, 8: 1000, 9: 1001} {
		assert.Equal([]int64{output}, runAll(t, NewCpu(image), input))
	}
}

func TestCpuRelative(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{109, 19, 204, -34, 99})
	cpu.Base = 2000
	cpu.Memory.Write(1985, 77)

	value, halted, err := cpu.Execute()
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(77), value)
	assert.Equal(int64(2019), cpu.Base)

	// Relative write
	cpu = NewCpu([]int64{109, 10, 203, 5, 204, 5, 99})
	assert.Equal([]int64{42}, runAll(t, cpu, 42))
	mem, err := cpu.Memory.Read(15)
	assert.NoError(err)
	assert.Equal(int64(42), mem)
}

func TestCpuHaltIdempotent(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{104, 1125899906842624, 99})

	value, halted, err := cpu.Execute()
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(1125899906842624), value)

	for range 3 {
		value, halted, err = cpu.Execute(1, 2, 3)
		assert.NoError(err)
		assert.True(halted)
		assert.Equal(int64(1125899906842624), value)
		assert.Equal(int64(2), cpu.Ip)
		assert.Equal(0, cpu.Inputs)
	}
}

func TestCpuResume(t *testing.T) {
	assert := assert.New(t)

	image := []int64{3, 20, 4, 20, 3, 21, 4, 21, 99}

	cpu := NewCpu(image)
	value, halted, err := cpu.Execute(5)
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(5), value)
	assert.Equal(STATE_SUSPENDED, cpu.State)

	value, halted, err = cpu.Execute(6)
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(6), value)

	value, halted, err = cpu.Execute()
	assert.NoError(err)
	assert.True(halted)
	assert.Equal(int64(6), value)
	assert.Equal(2, cpu.Inputs)

	// Unconsumed inputs are discarded at the end of a call.
	cpu = NewCpu(image)
	value, _, err = cpu.Execute(5, 99)
	assert.NoError(err)
	assert.Equal(int64(5), value)

	value, _, err = cpu.Execute()
	assert.ErrorIs(err, ErrInputUnderflow)
	assert.Equal(int64(5), value)
}

func TestCpuFault(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		image []int64
		ip    int64
		err   error
	}){
		{[]int64{42}, 0, ErrOpcodeInvalid},
		{[]int64{1101, 1, 1, 0, 0}, 4, ErrOpcodeInvalid},
		{[]int64{-1}, 0, ErrOpcodeInvalid},
		{[]int64{3, 0, 99}, 0, ErrInputUnderflow},
		{[]int64{4, 100, 99}, 0, ErrMemoryFault},
		{[]int64{1, 100, 0, 0, 99}, 0, ErrMemoryFault},
		{[]int64{1, 0, 0}, 0, ErrMemoryFault},
		{[]int64{1105, 1, 7}, 7, ErrMemoryFault},
		{[]int64{304, 0, 99}, 0, ErrModeInvalid},
		{[]int64{30001, 0, 0, 0, 99}, 0, ErrModeInvalid},
	}

	for _, entry := range table {
		cpu := NewCpu(entry.image)
		before := cpu.Memory.Clone()

		value, halted, err := cpu.Execute()
		assert.ErrorIs(err, entry.err, entry.image)
		assert.False(halted, entry.image)
		assert.Equal(NO_OUTPUT, value)
		assert.Equal(entry.ip, cpu.Ip, entry.image)

		var inst *ErrInstruction
		if assert.True(errors.As(err, &inst), entry.image) {
			assert.Equal(entry.ip, inst.Ip)
		}

		if entry.ip == 0 {
			assert.Equal(before, cpu.Memory, entry.image)
		}
	}

	_, _, err := NewCpu([]int64{4, 100, 99}).Execute()
	var addr ErrAddress
	if assert.True(errors.As(err, &addr)) {
		assert.Equal(ErrAddress(100), addr)
	}

	_, _, err = NewCpu([]int64{77}).Execute()
	assert.ErrorIs(err, ErrOpcode(77))
}

func TestCpuUnderflowRetry(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{3, 0, 4, 0, 99})

	_, _, err := cpu.Execute()
	assert.ErrorIs(err, ErrInputUnderflow)
	assert.Equal(int64(0), cpu.Ip)
	assert.Equal(0, cpu.Ticks)

	value, halted, err := cpu.Execute(12)
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(12), value)
	assert.Equal(1, cpu.Inputs)
}

func TestCpuImmediateWrite(t *testing.T) {
	assert := assert.New(t)

	// add 2 3 to an immediate-mode target, which writes to address 5.
	cpu := NewCpu([]int64{11101, 2, 3, 5, 99, 0})

	_, halted, err := cpu.Execute()
	assert.NoError(err)
	assert.True(halted)

	value, err := cpu.Memory.Read(5)
	assert.NoError(err)
	assert.Equal(int64(5), value)

	// in to an immediate-mode target
	cpu = NewCpu([]int64{103, 3, 99, 0})
	_, halted, err = cpu.Execute(9)
	assert.NoError(err)
	assert.True(halted)
	assert.Equal([]int64{103, 3, 99, 9}, cpu.Memory.Image())
}

func TestCpuSparse(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{1101, 1, 2, 1000000, 4, 1000000, 99})

	assert.Equal([]int64{3}, runAll(t, cpu))
	assert.True(cpu.Memory.Has(1000000))
	assert.False(cpu.Memory.Has(999999))
}

func TestCpuClone(t *testing.T) {
	assert := assert.New(t)

	image := []int64{3, 20, 4, 20, 3, 21, 4, 21, 99}

	cpu := NewCpu(image)
	_, _, err := cpu.Execute(5)
	assert.NoError(err)

	clone := cpu.Clone()
	assert.Equal(cpu.String(), clone.String())

	value, _, err := clone.Execute(6)
	assert.NoError(err)
	assert.Equal(int64(6), value)

	value, _, err = cpu.Execute(7)
	assert.NoError(err)
	assert.Equal(int64(7), value)

	mem, err := clone.Memory.Read(21)
	assert.NoError(err)
	assert.Equal(int64(6), mem)
}

func TestCpuStep(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{0})

	err := cpu.Step(MakeCode(OP_ADD, []CodeMode{MODE_IMMEDIATE, MODE_IMMEDIATE}, 2, 3, 0))
	assert.NoError(err)
	assert.Equal(int64(4), cpu.Ip)
	assert.Equal(1, cpu.Ticks)

	value, err := cpu.Memory.Read(0)
	assert.NoError(err)
	assert.Equal(int64(5), value)

	err = cpu.Step(Code{Word: int64(OP_ADD), Operands: []int64{1}})
	assert.ErrorIs(err, ErrOpcodeInvalid)
	assert.Equal(int64(4), cpu.Ip)

	err = cpu.Step(MakeCode(OP_JF, []CodeMode{MODE_IMMEDIATE, MODE_IMMEDIATE}, 0, 40))
	assert.NoError(err)
	assert.Equal(int64(40), cpu.Ip)

	err = cpu.Step(MakeCode(OP_ARB, []CodeMode{MODE_IMMEDIATE}, -7))
	assert.NoError(err)
	assert.Equal(int64(-7), cpu.Base)
	assert.Equal(int64(42), cpu.Ip)

	err = cpu.Step(MakeCode(OP_HALT, nil))
	assert.NoError(err)
	assert.Equal(int64(42), cpu.Ip)
	assert.True(cpu.Halted())
}

func TestCpuExecuteContext(t *testing.T) {
	assert := assert.New(t)

	// jmp 0 forever
	cpu := NewCpu([]int64{1105, 1, 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, halted, err := cpu.ExecuteContext(ctx)
	assert.ErrorIs(err, context.Canceled)
	assert.False(halted)
	assert.Equal(0, cpu.Ticks)

	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, halted, err = cpu.ExecuteContext(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.False(halted)
	assert.Equal(int64(0), cpu.Ip)
	assert.Zero(cpu.Ticks % CONTEXT_TICKS)
	assert.Positive(cpu.Ticks)

	// A stopped machine resumes.
	cpu = NewCpu([]int64{3, 0, 4, 0, 99})
	_, _, err = cpu.ExecuteContext(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	value, _, err := cpu.Execute(4)
	assert.NoError(err)
	assert.Equal(int64(4), value)
}

func TestCpuFetchFault(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		image []int64
		word  int64
		text  string
	}){
		{[]int64{1, 0, 0}, 1, "ip 0 address 3 unset"},
		{[]int64{1005, 1}, 1005, "ip 0 address 2 unset"},
		{nil, 0, "ip 0 address 0 unset"},
	}

	for _, entry := range table {
		_, _, err := NewCpu(entry.image).Execute()
		assert.ErrorIs(err, ErrMemoryFault, entry.image)

		var inst *ErrInstruction
		if assert.ErrorAs(err, &inst, entry.image) {
			assert.Equal(entry.word, inst.Code.Word)
			assert.Nil(inst.Code.Operands)
		}
		assert.Equal(entry.text, err.Error())
	}

	cpu := NewCpu([]int64{104, 5, 77})
	_, _, err := cpu.Execute()
	assert.NoError(err)
	_, _, err = cpu.Execute()
	assert.ErrorIs(err, ErrOpcodeInvalid)
	assert.Equal("ip 2 bad opcode 77 in word 77", err.Error())
}
