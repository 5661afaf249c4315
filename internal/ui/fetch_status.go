package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vitals/internal/util"
)

var fetchFrames = []string{"◐", "◓", "◑", "◒"}

const fetchFrameEvery = 80 * time.Millisecond

// FetchStatus animates one terminal line while a batch of sources is
// fetched, then replaces it with a summary. It redraws with carriage
// returns, so w should be a terminal.
type FetchStatus struct {
	w     io.Writer
	total int

	mu      sync.Mutex
	current string
	failed  []string
	done    int
	frame   int
	drawn   int // width of the last line written, for blanking it
	started time.Time
	stop    chan struct{}
	stopped chan struct{}
}

func NewFetchStatus(w io.Writer, total int) *FetchStatus {
	return &FetchStatus{w: w, total: total}
}

// Start draws the first frame and animates until Finish. It runs once.
func (f *FetchStatus) Start() {
	f.mu.Lock()
	if !f.started.IsZero() {
		f.mu.Unlock()
		return
	}
	f.started = time.Now()
	f.stop = make(chan struct{})
	f.stopped = make(chan struct{})
	stop, stopped := f.stop, f.stopped
	f.redraw()
	f.mu.Unlock()

	go f.animate(stop, stopped)
}

// Fetching names the source now in flight.
func (f *FetchStatus) Fetching(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = source
	f.redraw()
}

// Finished records one source's outcome.
func (f *FetchStatus) Finished(source string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done++
	if err != nil {
		f.failed = append(f.failed, source)
	}
	f.current = ""
	f.redraw()
}

// Finish stops the animation and writes the summary line. Calls after the
// first do nothing.
func (f *FetchStatus) Finish() {
	f.mu.Lock()
	stop, stopped := f.stop, f.stopped
	f.stop = nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped

	f.mu.Lock()
	defer f.mu.Unlock()
	f.blank()
	fmt.Fprintln(f.w, f.summary())
}

func (f *FetchStatus) animate(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(fetchFrameEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.mu.Lock()
			f.frame = (f.frame + 1) % len(fetchFrames)
			f.redraw()
			f.mu.Unlock()
		}
	}
}

// redraw requires f.mu.
func (f *FetchStatus) redraw() {
	if f.stop == nil {
		return
	}
	f.blank()
	line := f.line()
	fmt.Fprint(f.w, line)
	f.drawn = lipgloss.Width(line)
}

func (f *FetchStatus) blank() {
	if f.drawn > 0 {
		fmt.Fprint(f.w, "\r"+strings.Repeat(" ", f.drawn)+"\r")
		f.drawn = 0
	}
}

func (f *FetchStatus) line() string {
	color := FrameColors[(f.frame/2)%len(FrameColors)]
	frame := lipgloss.NewStyle().Foreground(color).Render(fetchFrames[f.frame])
	label := fmt.Sprintf("Fetching %d/%d", f.done, f.total)
	if f.current != "" {
		label += " " + f.current
	}
	return frame + " " + label
}

func (f *FetchStatus) summary() string {
	ok := f.done - len(f.failed)
	symbol, color := SymbolComplete, ColorSuccess
	switch {
	case ok == 0 && f.done > 0:
		symbol, color = SymbolFail, ColorError
	case len(f.failed) > 0:
		symbol, color = SymbolWarning, ColorWarning
	}

	text := fmt.Sprintf("Fetched %d %s", ok, util.Pluralize(ok, "source", "sources"))
	if len(f.failed) > 0 {
		text += ", failed: " + strings.Join(f.failed, ", ")
	}
	elapsed := MutedStyle().Render(formatElapsed(time.Since(f.started)))
	return lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + text + " " + elapsed
}

// formatElapsed keeps two decimals under a tenth of a second, e.g. "0.04s", "1.2s".
func formatElapsed(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
