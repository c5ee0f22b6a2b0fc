package emulator

import (
	"context"

	"github.com/ezrec/intcode/cpu"
)

// Chain runs a series of machines loaded from the same image, one per
// phase setting. Each machine receives its phase on its first call only,
// followed by the previous machine's output; the first machine is fed the
// signal.
//
// The chain stops with the context error once ctx is done.
//
// Without feedback a single pass is made. With feedback the last output is
// fed back to the first machine until the last machine halts.
func Chain(ctx context.Context, image []int64, phases []int64, signal int64, feedback bool) (output int64, err error) {
	amps := make([]*cpu.Cpu, len(phases))
	for n := range amps {
		amps[n] = cpu.NewCpu(image)
	}

	output = signal
	for first := true; len(amps) > 0; first = false {
		halts := 0
		for n, amp := range amps {
			inputs := []int64{output}
			if first {
				inputs = []int64{phases[n], output}
			}

			var halted bool
			output, halted, err = amp.ExecuteContext(ctx, inputs...)
			if err != nil {
				err = &ErrAmplifier{Index: n, Err: err}
				return
			}
			if halted {
				halts++
			}
		}

		if !feedback || halts == len(amps) || amps[len(amps)-1].Halted() {
			break
		}
	}

	return
}
