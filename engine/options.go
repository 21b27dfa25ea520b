package engine

import (
	"fmt"
	"io"
)

// Options configures one Decompile call. Trace, when non-nil, receives a
// one-line record of every instruction the main loop dispatches: a simple
// opt-in tracer for diagnosing reconstruction by hand — there is no
// separate logging framework here, only an opt-in execution trace.
type Options struct {
	Trace io.Writer
}

func (o Options) tracef(format string, args ...any) {
	if o.Trace == nil {
		return
	}
	fmt.Fprintf(o.Trace, format, args...)
}
