// Package script runs Starlark driver scripts over machines.
//
// A driver script builds machines from program images and steps them with
// inputs, the way the puzzle drivers of the machine are usually written:
//
//	m = machine(load_image("day9.txt"))
//	print(m.run(2))
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/emulator"
	intio "github.com/ezrec/intcode/io"
)

// Options configure a script run.
type Options struct {
	Verbose  bool           // If set, machines log each instruction.
	ZeroFill bool           // Default memory policy of new machines.
	Output   io.Writer      // Destination of print(); defaults to os.Stdout.
	Pool     *emulator.Pool // Task pool for the search builtins.
}

// contextKey is the thread local holding the run context.
const contextKey = "context"

// Exec runs a script, and returns its global values.
func Exec(ctx context.Context, filename string, src any, options Options) (globals starlark.StringDict, err error) {
	out := options.Output
	if out == nil {
		out = os.Stdout
	}

	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	thread.SetLocal(contextKey, ctx)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	opts := syntax.FileOptions{}
	globals, err = starlark.ExecFileOptions(&opts, thread, filename, src, options.predeclared())
	return
}

func (options Options) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"machine":     starlark.NewBuiltin("machine", options.newMachine),
		"load_image":  starlark.NewBuiltin("load_image", loadImage),
		"parse_image": starlark.NewBuiltin("parse_image", parseImage),
		"assemble":    starlark.NewBuiltin("assemble", assemble),
		"chain":       starlark.NewBuiltin("chain", chain),
		"best_chain":  starlark.NewBuiltin("best_chain", options.bestChain),
		"noun_verb":   starlark.NewBuiltin("noun_verb", options.nounVerb),
		"paint":       starlark.NewBuiltin("paint", paint),
	}
}

func threadContext(thread *starlark.Thread) context.Context {
	ctx, ok := thread.Local(contextKey).(context.Context)
	if !ok {
		return context.Background()
	}
	return ctx
}

// toInts converts a sequence of Starlark ints.
func toInts(values starlark.Iterable) (ints []int64, err error) {
	iter := values.Iterate()
	defer iter.Done()

	var value starlark.Value
	for iter.Next(&value) {
		num, ok := value.(starlark.Int)
		if !ok {
			err = ErrImageType(value.Type())
			return
		}
		n, ok := num.Int64()
		if !ok {
			err = ErrImageValue
			return
		}
		ints = append(ints, n)
	}

	return
}

// fromInts converts to a Starlark list.
func fromInts(ints []int64) *starlark.List {
	values := make([]starlark.Value, len(ints))
	for n, value := range ints {
		values[n] = starlark.MakeInt64(value)
	}
	return starlark.NewList(values)
}

// toImage accepts an image as a list of ints or as comma-separated text.
func toImage(value starlark.Value) (image []int64, err error) {
	switch v := value.(type) {
	case starlark.String:
		image, err = intio.ParseImage(strings.NewReader(string(v)))
	case *Machine:
		image = v.Cpu.Memory.Image()
	case starlark.Iterable:
		image, err = toInts(v)
	default:
		err = ErrImageType(value.Type())
	}

	return
}

// newMachine creates a machine: machine(program, zero_fill=False)
func (options Options) newMachine(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var program starlark.Value
	zeroFill := options.ZeroFill
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &program, "zero_fill?", &zeroFill); err != nil {
		return nil, err
	}

	image, err := toImage(program)
	if err != nil {
		return nil, err
	}

	m := &Machine{Cpu: cpu.NewCpu(image)}
	m.Cpu.Verbose = options.Verbose
	m.Cpu.Memory.ZeroFill = zeroFill

	return m, nil
}

// loadImage reads an image file: load_image(path)
func loadImage(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &path); err != nil {
		return nil, err
	}

	image, err := intio.LoadImage(path)
	if err != nil {
		return nil, err
	}

	return fromInts(image), nil
}

// parseImage parses image text: parse_image(text)
func parseImage(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}

	image, err := intio.ParseImage(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	return fromInts(image), nil
}

// assemble assembles source text to an image: assemble(text)
func assemble(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}

	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	return fromInts(prog.Binary()), nil
}

// chain runs an amplifier chain: chain(program, phases, signal=0, feedback=False)
func chain(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var program starlark.Value
	var phaseList starlark.Iterable
	var signal int64
	var feedback bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &program, "phases", &phaseList, "signal?", &signal, "feedback?", &feedback); err != nil {
		return nil, err
	}

	image, err := toImage(program)
	if err != nil {
		return nil, err
	}
	phases, err := toInts(phaseList)
	if err != nil {
		return nil, err
	}

	output, err := emulator.Chain(threadContext(thread), image, phases, signal, feedback)
	if err != nil {
		return nil, err
	}

	return starlark.MakeInt64(output), nil
}

// bestChain searches phase orderings: best_chain(program, phases, feedback=False)
func (options Options) bestChain(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var program starlark.Value
	var phaseList starlark.Iterable
	var feedback bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &program, "phases", &phaseList, "feedback?", &feedback); err != nil {
		return nil, err
	}

	image, err := toImage(program)
	if err != nil {
		return nil, err
	}
	phases, err := toInts(phaseList)
	if err != nil {
		return nil, err
	}

	best, order, err := emulator.BestChain(threadContext(thread), options.Pool, image, phases, feedback)
	if err != nil {
		return nil, err
	}

	return starlark.Tuple{starlark.MakeInt64(best), fromInts(order)}, nil
}

// nounVerb searches patched inputs: noun_verb(program, target)
func (options Options) nounVerb(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var program starlark.Value
	var target int64
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &program, "target", &target); err != nil {
		return nil, err
	}

	image, err := toImage(program)
	if err != nil {
		return nil, err
	}

	noun, verb, err := emulator.NounVerb(threadContext(thread), options.Pool, image, target)
	if err != nil {
		return nil, err
	}

	return starlark.Tuple{starlark.MakeInt64(noun), starlark.MakeInt64(verb)}, nil
}

// paint runs a hull painting robot: paint(program, start=0)
func paint(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var program starlark.Value
	var start int64
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "program", &program, "start?", &start); err != nil {
		return nil, err
	}

	image, err := toImage(program)
	if err != nil {
		return nil, err
	}

	hull, err := emulator.Paint(threadContext(thread), image, start)
	if err != nil {
		return nil, err
	}

	return starlark.Tuple{starlark.MakeInt(len(hull.Painted)), starlark.String(hull.String())}, nil
}
