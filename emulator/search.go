package emulator

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/internal"
)

// NOUN_VERB_LIMIT bounds the noun and verb values tried by NounVerb.
const NOUN_VERB_LIMIT = 100

// errFound stops a search early.
var errFound = errors.New(f("found"))

// BestChain tries every ordering of the phase settings on a Chain fed a
// zero signal, and returns the largest final output with the ordering that
// produced it. Ties go to the lexically first ordering.
func BestChain(ctx context.Context, pool *Pool, image []int64, phases []int64, feedback bool) (best int64, order []int64, err error) {
	var lock sync.Mutex

	err = Each(ctx, pool, internal.Permutations(phases), func(ctx context.Context, perm []int64) (err error) {
		output, err := Chain(ctx, image, perm, 0, feedback)
		if err != nil {
			return
		}

		lock.Lock()
		defer lock.Unlock()
		if order == nil || output > best || (output == best && slices.Compare(perm, order) < 0) {
			best = output
			order = perm
		}
		return
	})
	if err != nil {
		return
	}

	if order == nil {
		err = ErrNotFound
	}

	return
}

// NounVerb finds the noun and verb, patched in at addresses 1 and 2, for
// which the image halts with the target value at address 0. Candidates
// that fault are skipped.
func NounVerb(ctx context.Context, pool *Pool, image []int64, target int64) (noun int64, verb int64, err error) {
	type pair struct {
		noun, verb int64
	}

	candidates := func(yield func(pair) bool) {
		for n := range int64(NOUN_VERB_LIMIT) {
			for v := range int64(NOUN_VERB_LIMIT) {
				if !yield(pair{noun: n, verb: v}) {
					return
				}
			}
		}
	}

	var found pair
	var once sync.Once

	err = Each(ctx, pool, candidates, func(ctx context.Context, p pair) error {
		if ctx.Err() != nil {
			return nil
		}

		machine := cpu.NewCpu(image)
		machine.Memory.Write(1, p.noun)
		machine.Memory.Write(2, p.verb)

		_, err := Collect(ctx, machine)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}

		value, err := machine.Memory.Read(0)
		if err != nil || value != target {
			return nil
		}

		once.Do(func() {
			found = p
		})
		return errFound
	})

	switch {
	case errors.Is(err, errFound):
		noun, verb, err = found.noun, found.verb, nil
	case err == nil:
		err = ErrNotFound
	}

	return
}
