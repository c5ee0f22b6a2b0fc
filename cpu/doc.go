// Package cpu implements the resumable stored-program machine and its
// assembler.
//
// The machine consists of a sparse memory of signed 64-bit cells, an
// instruction pointer (IP), a relative base register, and a last-output
// latch. Instructions are a variable number of words: an opcode word whose
// two low decimal digits select the operation and whose higher digits select
// the addressing mode of each operand, followed by one word per operand.
//
// Execution suspends after every output instruction and terminates on halt.
// Each call to Execute resumes where the previous call left off.
//
// The assembler provides a small assembly language for the instruction set,
// supporting labels, equates, data words, and compile-time expression
// evaluation.
package cpu
