package cpu

import (
	"maps"
	"slices"
)

// Memory is the sparse address space of a machine.
//
// Unlike most machines, cells are not implicitly zero: reading an address
// that was never written, and was not part of the loaded program, is an
// ErrMemoryFault unless ZeroFill is set. Negative addresses are not
// rejected.
type Memory struct {
	ZeroFill bool // If set, unset addresses read as zero.

	cell map[int64]int64
}

// NewMemory creates a memory initialized from a program image at
// addresses 0..len(image)-1.
func NewMemory(image []int64) (mem *Memory) {
	mem = &Memory{
		cell: make(map[int64]int64, len(image)),
	}

	for addr, value := range image {
		mem.cell[int64(addr)] = value
	}

	return
}

// Read returns the value at an address.
func (mem *Memory) Read(addr int64) (value int64, err error) {
	value, ok := mem.cell[addr]
	if !ok && !mem.ZeroFill {
		err = ErrAddress(addr)
		return
	}

	return
}

// Write stores a value at an address, creating the address if needed.
func (mem *Memory) Write(addr int64, value int64) {
	if mem.cell == nil {
		mem.cell = make(map[int64]int64)
	}
	mem.cell[addr] = value
}

// Has returns true if the address has been written.
func (mem *Memory) Has(addr int64) (ok bool) {
	_, ok = mem.cell[addr]
	return
}

// Len returns the number of addresses that have been written.
func (mem *Memory) Len() int {
	return len(mem.cell)
}

// Addresses returns the written addresses in ascending order.
func (mem *Memory) Addresses() []int64 {
	return slices.Sorted(maps.Keys(mem.cell))
}

// Image returns the contiguous cells from address 0 up to the first
// unset address.
func (mem *Memory) Image() (image []int64) {
	for addr := int64(0); ; addr++ {
		value, ok := mem.cell[addr]
		if !ok {
			break
		}
		image = append(image, value)
	}

	return
}

// Clone returns an independent copy of the memory.
func (mem *Memory) Clone() *Memory {
	return &Memory{
		ZeroFill: mem.ZeroFill,
		cell:     maps.Clone(mem.cell),
	}
}

// Reset clears all cells.
func (mem *Memory) Reset() {
	clear(mem.cell)
}
