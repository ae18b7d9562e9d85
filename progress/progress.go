package progress

import (
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/minio/pkg/console"

	"seqbench/benchmark"
)

// printMu serializes bar updates coming from trial callbacks.
var printMu sync.Mutex

// ProgressBar counts completed trials of a foreground run.
type ProgressBar struct {
	*pb.ProgressBar
}

// NewProgressBar starts a bar of total trials rendered to w.
func NewProgressBar(total int64, w io.Writer) *ProgressBar {
	// Green bold bar theme.
	console.SetColor("Bar", color.New(color.FgGreen, color.Bold))

	bar := pb.New64(total)
	bar.SetWriter(w)
	bar.SetRefreshRate(time.Millisecond * 125)
	bar.SetTemplateString(`{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
	bar.Start()

	return &ProgressBar{ProgressBar: bar}
}

// SetCaption shows the configuration key in front of the bar.
func (p *ProgressBar) SetCaption(caption string) *ProgressBar {
	printMu.Lock()
	defer printMu.Unlock()
	p.ProgressBar.Set("prefix", caption)
	return p
}

// ObserveTrial advances the bar by one trial. It matches the signature of
// benchmark.Runner.OnTrial.
func (p *ProgressBar) ObserveTrial(_ int, _ benchmark.MeasurementRecord) {
	printMu.Lock()
	defer printMu.Unlock()
	p.Increment()
}
