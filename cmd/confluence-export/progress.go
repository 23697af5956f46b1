package main

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/toothbrush/confluence-export/localdump"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBar shows page outcomes as they arrive.
type progressBar struct {
	out    io.Writer
	name   string
	p      *mpb.Progress
	bar    *mpb.Bar
	failed atomic.Int32
}

var _ localdump.Progress = (*progressBar)(nil)

func newProgressBar(out io.Writer, name string) *progressBar {
	return &progressBar{out: out, name: name}
}

func (pb *progressBar) Start(total int) {
	pb.p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(pb.out))

	pb.bar = pb.p.AddBar(int64(total),
		mpb.PrependDecorators(
			// display our name with one space on the right
			decor.Name(fmt.Sprintf("%s:", pb.name),
				decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
			decor.Any(func(decor.Statistics) string {
				n := pb.failed.Load()
				if n == 0 {
					return ""
				}
				return fmt.Sprintf(" %d failed", n)
			}),
		),
	)
}

func (pb *progressBar) PageDone(outcome localdump.FetchOutcome) {
	if outcome.Status == localdump.StatusFailed {
		pb.failed.Add(1)
	}
	pb.bar.Increment()
}

func (pb *progressBar) Finish() {
	// An interrupted run never reaches the total.
	if !pb.bar.Completed() {
		pb.bar.Abort(false)
	}
	pb.p.Wait()
}
