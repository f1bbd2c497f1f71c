/*
   us64 - emulator entry point.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/us64/bootscript"
	"github.com/rcornwell/us64/debugger"
	"github.com/rcornwell/us64/image"
	logger "github.com/rcornwell/us64/util/logger"
	"github.com/rcornwell/us64/vm"
)

const version = "us64 0.1.0"

func main() {
	optHelp := getopt.BoolLong("help", 'h', "show usage and exit")
	optVersion := getopt.BoolLong("version", 'v', "show version and exit")
	optVerbose := getopt.BoolLong("verbose", 0, "trace every translation, read/write, interrupt, and clock to stderr")
	optClocks := getopt.Uint64Long("clocks", 'c', 0, "clock budget; 0 means unlimited")
	optBoot := getopt.StringLong("boot", 'b', "", "bootscript to apply after image load")
	getopt.SetParameters("<image>")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	if *optVersion {
		os.Stdout.WriteString(version + "\n")
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		getopt.Usage()
		os.Exit(1)
	}

	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	log := slog.New(logger.NewHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}, *optVerbose))
	slog.SetDefault(log)

	maxClocks := vm.Unlimited
	if *optClocks != 0 {
		maxClocks = *optClocks
	}

	img, err := image.Load(args[0])
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	m := img.NewMachine(vm.Options{Verbose: *optVerbose, MaxClocks: maxClocks}, log)
	m.Regs[vm.FLAGS] |= vm.FlagRun

	if *optBoot != "" {
		if err := bootscript.Run(*optBoot, m); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}

	driver := vm.NewDriver(m, debugger.NewConsole())
	driver.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info("signal received, stopping")
	case <-waitFor(m):
	}
	driver.Stop()
}

// waitFor returns a channel that closes once the machine stops running
// on its own (FLAGS.FlagRun clears without external intervention).
func waitFor(m *vm.Machine) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for m.Running() {
			time.Sleep(5 * time.Millisecond)
		}
		close(done)
	}()
	return done
}
