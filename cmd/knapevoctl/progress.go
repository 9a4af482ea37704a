package main

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"knapevo/internal/evo"
)

// progress draws one bar tick per evaluated generation.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgress(w io.Writer, generations int) *progress {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(60))
	bar := p.AddBar(int64(generations),
		mpb.PrependDecorators(
			decor.Name("evolving"),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
		),
	)
	return &progress{p: p, bar: bar}
}

func (p *progress) OnGeneration(evo.GenerationReport) {
	p.bar.Increment()
}

// finish completes the bar at its current count, which is short of the
// total after an early stop or an error.
func (p *progress) finish() {
	p.bar.SetTotal(-1, true)
	p.p.Wait()
}
