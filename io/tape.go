package io

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"unicode"
)

// Tape provides sequential I/O of machine values over byte streams.
// Input is read lazily, one value at a time, so an interactive Input only
// blocks when the machine actually needs a value.
//
// In decimal mode values are separated by commas or whitespace on input
// and written one per line on output. In Ascii mode every input byte is a
// value, and output values in the 7-bit ASCII range are written as
// characters.
type Tape struct {
	Input  io.Reader
	Output io.Writer
	Ascii  bool

	Err error // First non-EOF input error.

	reader *bufio.Reader
	index  int
}

var _ Channel = (*Tape)(nil)

// Rewind drops any buffered input. Rewind is not possible on the
// underlying stream.
func (tc *Tape) Rewind() {
	tc.reader = nil
	tc.index = 0
	tc.Err = nil
}

// Receive returns an iterator that yields values from the input stream.
func (tc *Tape) Receive() iter.Seq[int64] {
	return func(yield func(value int64) bool) {
		if tc.Input == nil {
			return
		}
		if tc.reader == nil {
			tc.reader = bufio.NewReader(tc.Input)
		}
		for {
			value, ok := tc.next()
			if !ok {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// next reads a single value from the input stream.
func (tc *Tape) next() (value int64, ok bool) {
	if tc.Ascii {
		b, err := tc.reader.ReadByte()
		if err != nil {
			tc.fail(err)
			return
		}
		tc.index++
		return int64(b), true
	}

	var word []rune
	for {
		r, _, err := tc.reader.ReadRune()
		if err != nil {
			if len(word) > 0 && err == io.EOF {
				break
			}
			tc.fail(err)
			return
		}
		if unicode.IsSpace(r) || r == ',' {
			if len(word) > 0 {
				break
			}
			continue
		}
		word = append(word, r)
	}

	value, err := strconv.ParseInt(string(word), 0, 64)
	if err != nil {
		tc.fail(&ErrParseValue{Index: tc.index, Word: string(word)})
		return
	}
	tc.index++

	return value, true
}

func (tc *Tape) fail(err error) {
	if err != io.EOF && tc.Err == nil {
		tc.Err = err
	}
}

// Send writes a value to the output stream.
func (tc *Tape) Send(value int64) (err error) {
	if tc.Output == nil {
		err = ErrChannelClosed
		return
	}

	if tc.Ascii && value >= 0 && value < 0x80 {
		_, err = tc.Output.Write([]byte{byte(value)})
		return
	}

	_, err = fmt.Fprintf(tc.Output, "%d\n", value)
	return
}
