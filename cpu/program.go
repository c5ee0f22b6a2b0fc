package cpu

import (
	"iter"
	"slices"
	"strings"
)

// Line represents a line of assembled code with its source location and
// generated instructions.
type Line struct {
	LineNo int      // Source line number; 0 for disassembled images.
	Ip     int64    // Address of the first word.
	Words  []string // Source words.
	Codes  []Code   // Generated instructions or data words.
}

// Len returns the number of memory words generated by the line.
func (line *Line) Len() (count int) {
	for _, code := range line.Codes {
		count += code.Len()
	}
	return
}

// Program is an assembled program listing.
type Program struct {
	Lines []Line
}

// Debug locates the line and code index covering an address.
type Debug struct {
	*Line
	Index int
}

// NewProgram creates a program listing from a raw image, by disassembly.
func NewProgram(image []int64) (prog *Program) {
	prog = &Program{}

	for ip, code := range Disassemble(image) {
		prog.Lines = append(prog.Lines, Line{
			Ip:    ip,
			Words: strings.Fields(code.String()),
			Codes: []Code{code},
		})
	}

	return
}

// Debug returns the line and code covering an address.
func (prog *Program) Debug(ip int64) (dbg Debug) {
	for n, line := range prog.Lines {
		if ip < line.Ip || ip >= line.Ip+int64(line.Len()) {
			continue
		}
		at := line.Ip
		for index, code := range line.Codes {
			if ip < at+int64(code.Len()) {
				dbg = Debug{
					Line:  &prog.Lines[n],
					Index: index,
				}
				return
			}
			at += int64(code.Len())
		}
	}

	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (bins []int64) {
	for _, code := range prog.Codes() {
		bins = append(bins, code.Words()...)
	}

	return
}

// Codes iterates over the instructions and data words of the program,
// with their addresses.
func (prog *Program) Codes() iter.Seq2[int64, Code] {
	return func(yield func(ip int64, code Code) bool) {
		for _, line := range prog.Lines {
			ip := line.Ip
			for _, code := range line.Codes {
				if !yield(ip, code) {
					return
				}
				ip += int64(code.Len())
			}
		}
	}
}

// Disassemble decodes an image sequentially from address 0. Words that do
// not start a complete, valid instruction are yielded as data words.
func Disassemble(image []int64) iter.Seq2[int64, Code] {
	return func(yield func(ip int64, code Code) bool) {
		for ip := 0; ip < len(image); {
			code := Code{Word: image[ip]}
			op := code.Opcode()
			count := op.Operands()
			if count > 0 && op.Valid() && ip+count < len(image) && validModes(code, count) {
				code.Operands = slices.Clone(image[ip+1 : ip+1+count])
			}
			if !yield(int64(ip), code) {
				return
			}
			ip += code.Len()
		}
	}
}

// validModes returns true if the first count operand modes of the
// instruction word are defined, and no mode digits are set past them.
// Immediate write targets are not valid.
func validModes(code Code, count int) bool {
	for n := range count {
		if !code.Mode(n).Valid() {
			return false
		}
	}
	if code.Word < 0 {
		return false
	}
	// No assembly syntax for these.
	if code.Opcode().Writes() && code.Mode(count-1) == MODE_IMMEDIATE {
		return false
	}

	return code.Word/modeDivisor[0] < pow10(count)
}

func pow10(n int) (value int64) {
	value = 1
	for range n {
		value *= 10
	}
	return
}
