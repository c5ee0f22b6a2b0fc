// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/internal"
	"github.com/ezrec/intcode/io"
)

// Emulator state. CPU + program listing + IO channel.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	ZeroFill bool         // If set, unset memory reads as zero.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Tape    io.Tape    // Tape IO channel.
	Channel io.Channel // IO channel in use; defaults to the Tape.
	Inputs  []int64    // Values supplied before any channel input.

	pull func() (int64, bool)
	stop func()
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(nil),
		Program: &cpu.Program{},
	}

	emu.Channel = &emu.Tape

	return
}

// Close the emulator input.
func (emu *Emulator) Close() (err error) {
	if emu.stop != nil {
		emu.stop()
	}
	emu.pull = nil
	emu.stop = nil

	return
}

// Reset loads the program binary into a fresh machine, and rewinds the
// input.
func (emu *Emulator) Reset() (err error) {
	emu.Close()

	image := emu.Program.Binary()
	if len(image) == 0 {
		err = ErrProgramEmpty
		return
	}

	emu.Cpu = cpu.NewCpu(image)
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Memory.ZeroFill = emu.ZeroFill

	var input iter.Seq[int64]
	if emu.Channel != nil {
		emu.Channel.Rewind()
		input = internal.IterSeqConcat(slices.Values(emu.Inputs), emu.Channel.Receive())
	} else {
		input = slices.Values(emu.Inputs)
	}
	emu.pull, emu.stop = iter.Pull(input)

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.FetchCode()
	return code
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	debug := emu.Program.Debug(emu.Cpu.Ip)
	if debug.Line == nil {
		return 0
	}

	return debug.LineNo
}

// Tick runs the machine to its next output or to halt. Input is pulled
// from the emulator inputs and channel one value at a time, only when an
// input instruction needs it. Outputs are sent to the channel.
func (emu *Emulator) Tick() (done bool, err error) {
	return emu.TickContext(context.Background())
}

// TickContext is Tick, stopping with the context error once ctx is done.
func (emu *Emulator) TickContext(ctx context.Context) (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	defer func() {
		if err != nil {
			err = &ErrRuntime{Ip: emu.Cpu.Ip, LineNo: emu.LineNo(), Err: err}
		}
	}()

	var inputs []int64
	for {
		var value int64
		var halted bool
		value, halted, err = emu.Cpu.ExecuteContext(ctx, inputs...)
		if errors.Is(err, cpu.ErrInputUnderflow) {
			input, ok := emu.receive()
			if !ok {
				if tape, isTape := emu.Channel.(*io.Tape); isTape && tape.Err != nil {
					err = errors.Join(err, tape.Err)
				}
				return
			}
			inputs = []int64{input}
			continue
		}
		if err != nil {
			return
		}

		if halted {
			done = true
			return
		}

		if emu.Channel != nil {
			err = emu.Channel.Send(value)
		}
		return
	}
}

// Run ticks the emulator until the machine halts.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}

func (emu *Emulator) receive() (value int64, ok bool) {
	if emu.pull == nil {
		return
	}

	return emu.pull()
}

// Collect runs a machine until it halts, feeding it inputs in order as
// input instructions need them, and returns every value it output.
// Collection stops with the context error once ctx is done.
func Collect(ctx context.Context, machine *cpu.Cpu, inputs ...int64) (outputs []int64, err error) {
	var feed []int64
	for {
		var value int64
		var halted bool
		value, halted, err = machine.ExecuteContext(ctx, feed...)
		feed = nil
		if errors.Is(err, cpu.ErrInputUnderflow) && len(inputs) > 0 {
			feed = inputs[:1]
			inputs = inputs[1:]
			err = nil
			continue
		}
		if err != nil || halted {
			return
		}
		outputs = append(outputs, value)
	}
}
