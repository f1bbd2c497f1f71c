/*
   us64 core: outer clock driver loop.

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

package vm

import (
	"sync"
	"time"
)

// Debugger is the interface the clock driver invokes when a tick
// yields on anything other than BREAKPOINT while running non-verbose.
// The debugger collaborator's own behaviour is not specified here;
// only this consumption point is.
type Debugger interface {
	Enter(m *Machine, irq uint32)
}

// Driver runs a Machine's clock on its own goroutine, gating entry to
// a Debugger collaborator: any interrupt other than Breakpoint,
// observed while not verbose, yields to the debugger before the loop
// continues.
type Driver struct {
	m   *Machine
	dbg Debugger

	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

// NewDriver builds a driver over m. dbg may be nil, in which case
// faulting ticks are not routed anywhere and the loop keeps ticking.
func NewDriver(m *Machine, dbg Debugger) *Driver {
	return &Driver{m: m, dbg: dbg, done: make(chan struct{})}
}

// Start runs the clock loop on its own goroutine until Stop is called.
// While the machine's FlagRun bit is clear the loop idles without
// ticking, and resumes ticking if FlagRun is set again.
func (d *Driver) Start() {
	d.wg.Add(1)
	go d.loop()
}

func (d *Driver) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		default:
		}

		if !d.m.Running() {
			time.Sleep(time.Millisecond)
			continue
		}

		irq := d.m.Clock()
		if irq == NIRQs {
			continue
		}
		if irq != Breakpoint && !d.m.Opt.Verbose && d.dbg != nil {
			d.dbg.Enter(d.m, irq)
		}
	}
}

// Stop signals the loop to exit and waits for it, up to one second.
func (d *Driver) Stop() {
	close(d.done)
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		d.m.logf("timed out waiting for clock driver to stop")
	}
}
