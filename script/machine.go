package script

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/emulator"
)

// Machine is a Starlark value wrapping a resumable machine.
type Machine struct {
	Cpu *cpu.Cpu

	frozen bool
}

var (
	_ starlark.Value    = (*Machine)(nil)
	_ starlark.HasAttrs = (*Machine)(nil)
)

var machineMethods = map[string]*starlark.Builtin{
	"execute": starlark.NewBuiltin("execute", machineExecute),
	"run":     starlark.NewBuiltin("run", machineRun),
	"peek":    starlark.NewBuiltin("peek", machinePeek),
	"poke":    starlark.NewBuiltin("poke", machinePoke),
	"clone":   starlark.NewBuiltin("clone", machineClone),
}

func (m *Machine) String() string {
	return fmt.Sprintf("machine(ip=%d, base=%d, output=%d, state=%v)",
		m.Cpu.Ip, m.Cpu.Base, m.Cpu.Output, m.Cpu.State)
}

func (m *Machine) Type() string { return "machine" }

func (m *Machine) Freeze() { m.frozen = true }

func (m *Machine) Truth() starlark.Bool { return starlark.True }

func (m *Machine) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: machine")
}

// Attr returns a machine register or a bound method.
func (m *Machine) Attr(name string) (value starlark.Value, err error) {
	switch name {
	case "ip":
		value = starlark.MakeInt64(m.Cpu.Ip)
	case "base":
		value = starlark.MakeInt64(m.Cpu.Base)
	case "output":
		value = starlark.MakeInt64(m.Cpu.Output)
	case "halted":
		value = starlark.Bool(m.Cpu.Halted())
	case "ticks":
		value = starlark.MakeInt(m.Cpu.Ticks)
	case "inputs":
		value = starlark.MakeInt(m.Cpu.Inputs)
	default:
		method, ok := machineMethods[name]
		if !ok {
			return nil, nil
		}
		value = method.BindReceiver(m)
	}

	return
}

func (m *Machine) AttrNames() (names []string) {
	names = []string{"base", "halted", "inputs", "ip", "output", "ticks"}
	for name := range machineMethods {
		names = append(names, name)
	}
	sort.Strings(names)

	return
}

func (m *Machine) mutable() error {
	if m.frozen {
		return ErrMachineFrozen
	}
	return nil
}

// machineExecute runs to the next output or halt: m.execute(*inputs)
func machineExecute(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	m := b.Receiver().(*Machine)
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if err := m.mutable(); err != nil {
		return nil, err
	}

	inputs, err := toInts(args)
	if err != nil {
		return nil, err
	}

	value, halted, err := m.Cpu.ExecuteContext(threadContext(thread), inputs...)
	if err != nil {
		return nil, err
	}

	return starlark.Tuple{starlark.MakeInt64(value), starlark.Bool(halted)}, nil
}

// machineRun runs to halt, and returns all outputs: m.run(*inputs)
func machineRun(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	m := b.Receiver().(*Machine)
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if err := m.mutable(); err != nil {
		return nil, err
	}

	inputs, err := toInts(args)
	if err != nil {
		return nil, err
	}

	outputs, err := emulator.Collect(threadContext(thread), m.Cpu, inputs...)
	if err != nil {
		return nil, err
	}

	return fromInts(outputs), nil
}

// machinePeek reads memory: m.peek(addr)
func machinePeek(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	m := b.Receiver().(*Machine)

	var addr int64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}

	value, err := m.Cpu.Memory.Read(addr)
	if err != nil {
		return nil, err
	}

	return starlark.MakeInt64(value), nil
}

// machinePoke writes memory: m.poke(addr, value)
func machinePoke(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	m := b.Receiver().(*Machine)

	var addr, value int64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &value); err != nil {
		return nil, err
	}
	if err := m.mutable(); err != nil {
		return nil, err
	}

	m.Cpu.Memory.Write(addr, value)

	return starlark.None, nil
}

// machineClone copies the machine: m.clone()
func machineClone(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	m := b.Receiver().(*Machine)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}

	return &Machine{Cpu: m.Cpu.Clone()}, nil
}
