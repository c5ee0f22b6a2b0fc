package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Lines))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(fmt.Sprintf("%d", NO_OUTPUT), asm.Equate["NO_OUTPUT"])
}

func doParse(t *testing.T, asm *Assembler, program []string) *Program {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestAssemblerProgram(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"; multiply by SIZE until zero",
		".equ SIZE 3",
		"start:  in [value]          ; read",
		"        mul [value] SIZE [value]",
		"        out [value]",
		"        jz [value] done",
		"        jump start",
		"done:   halt",
		"value:  .data 'A', $(SIZE*2), LINENO, NO_OUTPUT, -SIZE",
	}

	asm := &Assembler{}
	prog := doParse(t, asm, program)

	assert.Equal([]int64{
		3, 15,
		1002, 15, 3, 15,
		4, 15,
		1006, 15, 14,
		1105, 1, 0,
		99,
		65, 6, 9, -1, -3,
	}, prog.Binary())

	assert.Equal(int64(0), asm.Label["start"])
	assert.Equal(int64(14), asm.Label["done"])
	assert.Equal(int64(15), asm.Label["value"])

	assert.Len(prog.Lines, 7)
	assert.Equal(3, prog.Lines[0].LineNo)
	assert.Equal(int64(2), prog.Lines[1].Ip)
	assert.Equal([]string{"jf", "[value]", "done"}, prog.Lines[3].Words)

	debug := prog.Debug(17)
	if assert.NotNil(debug.Line) {
		assert.Equal(9, debug.LineNo)
		assert.Equal(2, debug.Index)
	}

	cpu := NewCpu(prog.Binary())
	value, halted, err := cpu.Execute(5)
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(15), value)

	value, halted, err = cpu.Execute(0)
	assert.NoError(err)
	assert.False(halted)
	assert.Equal(int64(0), value)

	_, halted, err = cpu.Execute()
	assert.NoError(err)
	assert.True(halted)
}

func TestAssemblerOperands(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line  string
		words []int64
	}){
		{"add 1, 2, [3]", []int64{1101, 1, 2, 3}},
		{"add [rb] [rb+1] [rb-2]", []int64{22201, 0, 1, -2}},
		{"mov [1] [2]", []int64{1001, 1, 0, 2}},
		{"mov 7 [rb+3]", []int64{21101, 7, 0, 3}},
		{"jnz [4] 0x10", []int64{1005, 4, 16}},
		{"jz 0 -1", []int64{1106, 0, -1}},
		{"arb [rb]", []int64{209, 0}},
		{"out 'z'", []int64{104, 122}},
		{"out '\\n'", []int64{104, 10}},
		{"out ';'", []int64{104, 59}},
		{"lt 1 2 [rb + 4]", []int64{21107, 1, 2, 4}},
		{"out $( 2 * (3 + 4) )", []int64{104, 14}},
		{".data", nil},
		{"here: .data here, LINENO", []int64{0, 1}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(entry.line))
		assert.NoError(err, entry.line)
		if err == nil {
			assert.Equal(entry.words, prog.Binary(), entry.line)
		}
	}
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SIZE", "4")
	asm.Predefine("LIMIT", "SIZE")
	asm.Predefine("SIZE", "5")

	prog := doParse(t, asm, []string{
		"out LIMIT",
		"out $(LIMIT*SIZE)",
		"halt",
	})
	assert.Equal([]int64{104, 5, 104, 25, 99}, prog.Binary())
}

func TestAssemblerQuine(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"        arb 1",
		"        out [rb-1]",
		"        add [count] 1 [count]",
		"        eq [count] $(end+1) [flag]",
		"        jf [flag] 0",
		"end:    halt",
		".equ count 100",
		".equ flag 101",
	}

	asm := &Assembler{}
	prog := doParse(t, asm, program)

	quine := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	assert.Equal(quine, prog.Binary())
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		program []string
		lineno  int
		err     error
	}){
		{[]string{".equ X"}, 1, ErrEquateSyntax},
		{[]string{".equ 1X 2"}, 1, ErrEquateSyntax},
		{[]string{".equ X 1", ".equ X 2"}, 2, ErrEquateDuplicate},
		{[]string{".equ A B", ".equ B A", ".data A"}, 3, ErrEquateLoop},
		{[]string{"a: halt", "a: halt"}, 2, ErrLabelDuplicate},
		{[]string{"rb: halt"}, 1, ErrLabelReserved},
		{[]string{"halt", "9lives: halt"}, 2, ErrLabelReserved},
		{[]string{"halt 1"}, 1, ErrOpcodeExtraArgs},
		{[]string{"", "add 1 2"}, 2, ErrOpcodeValueMissing},
		{[]string{"frob 1"}, 1, ErrInstructionInvalid},
		{[]string{"add 1 2 3"}, 1, ErrTargetImmediate},
		{[]string{"in 5"}, 1, ErrTargetImmediate},
		{[]string{"jt 1 nowhere"}, 1, ErrLabelMissing("nowhere")},
		{[]string{".data 1x"}, 1, ErrParseNumber("1x")},
		{[]string{"out [1"}, 1, ErrParseOperand("[1")},
		{[]string{"out $('a')"}, 1, ErrParseExpression("'a'")},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.program)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.program) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.program)
		}
	}

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("out $(1 +)"))
	assert.Error(err)
}
