// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/emulator"
	"github.com/ezrec/intcode/io"
	"github.com/ezrec/intcode/script"
	"github.com/ezrec/intcode/translate"
)

// parseInputs parses a comma separated list of preset input values.
func parseInputs(text string) (inputs []int64, err error) {
	for _, word := range strings.Split(text, ",") {
		word = strings.TrimSpace(word)
		if len(word) == 0 {
			continue
		}
		var value int64
		value, err = strconv.ParseInt(word, 0, 64)
		if err != nil {
			return
		}
		inputs = append(inputs, value)
	}

	return
}

func main() {
	var image string
	var compile string
	var driver string
	var input string
	var output string
	var ascii bool
	var preset string
	var disassemble bool
	var id bool
	var write string
	var compress bool
	var zeroFill bool
	var jobs int
	var lang string
	var verbose bool

	flag.StringVar(&image, "p", "", "Program image file to load")
	flag.StringVar(&compile, "c", "", "Assembly file to compile")
	flag.StringVar(&driver, "x", "", "Starlark driver script to run")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output")
	flag.BoolVar(&ascii, "a", false, "ASCII tape")
	flag.StringVar(&preset, "in", "", "Comma separated inputs, before the tape")
	flag.BoolVar(&disassemble, "d", false, "Disassemble the program, do not execute")
	flag.BoolVar(&id, "id", false, "Print the program image id, do not execute")
	flag.StringVar(&write, "w", "", "Write the program image to a file, do not execute")
	flag.BoolVar(&compress, "zst", false, "Compress the written program image")
	flag.BoolVar(&zeroFill, "z", false, "Unset memory reads as zero")
	flag.IntVar(&jobs, "j", 0, "Concurrent machines for driver searches")
	flag.StringVar(&lang, "lang", "", "Message language")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		err := translate.Use(lang)
		if err != nil {
			log.Fatalf("%v: %v", lang, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Run a driver script, which loads its own programs.
	if len(driver) != 0 {
		options := script.Options{
			Verbose:  verbose,
			ZeroFill: zeroFill,
			Pool:     &emulator.Pool{Limit: jobs},
		}
		_, err := script.Exec(ctx, driver, nil, options)
		if err != nil {
			log.Fatalf("%v: %v", driver, err)
		}
		return
	}

	prog := &cpu.Program{}

	switch {
	case len(compile) != 0:
		// Compile a new instruction stream.
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	case len(image) != 0:
		binary, err := io.LoadImage(image)
		if err != nil {
			log.Fatal(err)
		}
		prog = cpu.NewProgram(binary)
	default:
		log.Fatalf("%v: One of -p, -c or -x is required", os.Args[0])
	}

	if disassemble || id || len(write) != 0 {
		if disassemble {
			for _, line := range prog.Lines {
				fmt.Printf("%04d: %v\n", line.Ip, strings.Join(line.Words, " "))
			}
		}
		if id {
			fmt.Println(io.Image(prog.Binary()).Id())
		}
		if len(write) != 0 {
			ouf, err := os.Create(write)
			if err != nil {
				log.Fatalf("%v: %v", write, err)
			}
			err = errors.Join(io.WriteImage(ouf, prog.Binary(), compress), ouf.Close())
			if err != nil {
				log.Fatalf("%v: %v", write, err)
			}
		}
		return
	}

	emu := emulator.NewEmulator()
	emu.Program = prog
	emu.Verbose = verbose
	emu.ZeroFill = zeroFill
	emu.Tape.Ascii = ascii

	inputs, err := parseInputs(preset)
	if err != nil {
		log.Fatalf("-in: %v", err)
	}
	emu.Inputs = inputs

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}
	defer emu.Close()

	for done, err := emu.TickContext(ctx); !done; done, err = emu.TickContext(ctx) {
		if err != nil {
			log.Fatal(err)
		}
	}

	if verbose {
		log.Printf("%v", emu.Cpu)
	}
}
