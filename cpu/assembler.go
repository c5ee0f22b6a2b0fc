// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"NO_OUTPUT": fmt.Sprintf("%d", NO_OUTPUT),
}

// mnemonicMap maps instruction names to opcodes.
var mnemonicMap = map[string]Opcode{
	"add":  OP_ADD,
	"mul":  OP_MUL,
	"in":   OP_IN,
	"out":  OP_OUT,
	"jt":   OP_JT,
	"jf":   OP_JF,
	"lt":   OP_LT,
	"eq":   OP_EQ,
	"arb":  OP_ARB,
	"halt": OP_HALT,
}

// labelRegexp matches a valid label or equate name.
var labelRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Assembler is a two pass assembler for the machine's instruction set.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string // Predefines
	Label     map[string]int64  // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// pending is a source line waiting for the second pass.
type pending struct {
	lineno int
	line   string
	ip     int64
	words  []string
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	return asm.valueDepth(word, 0)
}

func (asm *Assembler) valueDepth(word string, depth int) (value int64, err error) {
	if depth > 16 {
		err = ErrEquateLoop
		return
	}

	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	switch {
	case strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")"):
		return asm.parenEval(word[2 : len(word)-1])
	case word[0] == '\'':
		var str string
		str, err = strconv.Unquote(word)
		if err != nil || len([]rune(str)) != 1 {
			err = ErrParseNumber(word)
			return
		}
		value = int64([]rune(str)[0])
		return
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err == nil {
		return
	}
	err = nil

	if word[0] == '-' {
		value, err = asm.valueDepth(word[1:], depth+1)
		value = -value
		return
	}

	ip, ok := asm.Label[word]
	if ok {
		value = ip
		return
	}

	equate, ok := asm.Equate[word]
	if ok {
		value, err = asm.valueDepth(equate, depth+1)
		return
	}

	if labelRegexp.MatchString(word) {
		err = ErrLabelMissing(word)
		return
	}

	err = ErrParseNumber(word)
	return
}

// operandOf determines the addressing mode and value of an operand word.
//
//	123        immediate
//	[123]      position
//	[rb+123]   relative
func (asm *Assembler) operandOf(word string) (mode CodeMode, value int64, err error) {
	if !strings.HasPrefix(word, "[") {
		mode = MODE_IMMEDIATE
		value, err = asm.valueOf(word)
		return
	}

	if !strings.HasSuffix(word, "]") {
		err = ErrParseOperand(word)
		return
	}

	inner := strings.TrimSpace(word[1 : len(word)-1])
	if inner == "rb" {
		mode = MODE_RELATIVE
		return
	}

	if strings.HasPrefix(inner, "rb") {
		rest := strings.TrimSpace(inner[2:])
		switch rest[0] {
		case '+':
			mode = MODE_RELATIVE
			value, err = asm.valueOf(strings.TrimSpace(rest[1:]))
			return
		case '-':
			mode = MODE_RELATIVE
			value, err = asm.valueOf(strings.TrimSpace(rest[1:]))
			value = -value
			return
		}
	}

	mode = MODE_POSITION
	value, err = asm.valueOf(inner)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 int64
		value64, err = asm.valueOf(str)
		if err != nil {
			// Ignore equates that are not integers.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(value64)
	}
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt64(ip)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitWords splits a line on whitespace and commas, keeping bracketed,
// parenthesized and quoted text together.
func splitWords(line string) (words []string) {
	var word strings.Builder
	var depth int
	var quoted, escaped bool

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, r := range line {
		switch {
		case quoted:
			word.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '\'':
				quoted = false
			}
		case r == '\'':
			quoted = true
			word.WriteRune(r)
		case r == '(' || r == '[':
			depth++
			word.WriteRune(r)
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
			word.WriteRune(r)
		case depth == 0 && (unicode.IsSpace(r) || r == ','):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return
}

// stripComment removes a ';' comment that is not inside a character quote.
func stripComment(text string) string {
	var quoted, escaped bool
	for n, r := range text {
		switch {
		case quoted:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '\'':
				quoted = false
			}
		case r == '\'':
			quoted = true
		case r == ';':
			return text[:n]
		}
	}
	return text
}

// alternate rewrites alternate instruction syntax to its base form.
func alternate(words []string) []string {
	switch {
	case len(words) == 3 && words[0] == "jnz":
		// jnz A TARGET => jt A TARGET
		return []string{"jt", words[1], words[2]}
	case len(words) == 3 && words[0] == "jz":
		// jz A TARGET => jf A TARGET
		return []string{"jf", words[1], words[2]}
	case len(words) == 2 && words[0] == "jump":
		// jump TARGET => jt 1 TARGET
		return []string{"jt", "1", words[1]}
	case len(words) == 3 && words[0] == "mov":
		// mov SRC DST => add SRC 0 DST
		return []string{"add", words[1], "0", words[2]}
	}

	return words
}

// parseLine handles equates and labels, and returns the words of the
// remaining instruction, if any.
func (asm *Assembler) parseLine(line string, ip int64) (words []string, err error) {
	words = splitWords(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 || !labelRegexp.MatchString(words[1]) {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if label == "rb" || !labelRegexp.MatchString(label) {
			err = ErrLabelReserved
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = ip
		words = words[1:]
	}

	words = alternate(words)

	return
}

// sizeOf returns the number of memory words the instruction words assemble to.
func (asm *Assembler) sizeOf(words []string) (size int64, err error) {
	if words[0] == ".data" {
		size = int64(len(words) - 1)
		return
	}

	op, ok := mnemonicMap[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := len(words) - 1
	switch {
	case args < op.Operands():
		err = ErrOpcodeValueMissing
	case args > op.Operands():
		err = ErrOpcodeExtraArgs
	default:
		size = int64(1 + args)
	}

	return
}

// parseWords assembles the words of a line into codes.
func (asm *Assembler) parseWords(words []string) (codes []Code, err error) {
	if words[0] == ".data" {
		for _, word := range words[1:] {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			codes = append(codes, Code{Word: value})
		}
		return
	}

	op := mnemonicMap[words[0]]
	args := words[1:]

	modes := make([]CodeMode, len(args))
	var operands []int64
	for n, word := range args {
		var value int64
		modes[n], value, err = asm.operandOf(word)
		if err != nil {
			return
		}
		if op.Writes() && n == len(args)-1 && modes[n] == MODE_IMMEDIATE {
			err = ErrTargetImmediate
			return
		}
		operands = append(operands, value)
	}

	codes = append(codes, MakeCode(op, modes, operands...))
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int64, 16)
	asm.Lines = asm.Lines[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	// First pass: labels, equates, and instruction sizes.
	var todo []pending
	var ip int64
	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))

		var words []string
		words, err = asm.parseLine(line, ip)
		if err != nil {
			return
		}
		if len(words) == 0 {
			continue
		}

		var size int64
		size, err = asm.sizeOf(words)
		if err != nil {
			return
		}

		todo = append(todo, pending{lineno: lineno, line: line, ip: ip, words: words})
		ip += size
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Second pass: encode, now that all labels are known.
	for _, item := range todo {
		lineno = item.lineno
		line = item.line
		asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

		var codes []Code
		codes, err = asm.parseWords(item.words)
		if err != nil {
			return
		}

		asm.Lines = append(asm.Lines, Line{
			LineNo: lineno,
			Ip:     item.ip,
			Words:  item.words,
			Codes:  codes,
		})
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}
