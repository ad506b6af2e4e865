// Package progressbar prints a progress bar for long-running
// experiments to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar implements a concurrent progress bar. Increments and
// redraws happen on separate goroutines so that the bar runs alongside
// the experiment it measures.
type ProgressBar struct {
	// width is the number of characters that the bar portion of the
	// display takes up
	width float64

	// maxProgress is the number of Increment calls at which the bar
	// reaches 100%
	maxProgress float64

	// currentProgress is the number of Increment calls so far
	currentProgress float64

	// incrementEvent carries the progress counter to the display
	// goroutine on each increment
	incrementEvent chan float64

	closeEvent chan struct{}
	closed     bool

	updateEvery       time.Duration
	updateAtIncrement bool
}

// NewProgressBar returns a new progress bar that is width characters
// wide and reaches 100% after max Increment calls. The bar redraws
// every updateEvery, and additionally on every increment when
// updateAtIncrement is true.
func NewProgressBar(width, max int, updateEvery time.Duration,
	updateAtIncrement bool) *ProgressBar {
	return &ProgressBar{
		width:             float64(width),
		maxProgress:       float64(max),
		currentProgress:   0,
		incrementEvent:    make(chan float64),
		closeEvent:        make(chan struct{}),
		closed:            false,
		updateEvery:       updateEvery,
		updateAtIncrement: updateAtIncrement,
	}
}

// Increment records one unit of progress. Call it once per completed
// iteration.
func (p *ProgressBar) Increment() {
	go func() {
		if p.currentProgress < p.maxProgress && !p.closed {
			p.incrementEvent <- p.currentProgress
			p.currentProgress++
		}
	}()
}

// Close stops the progress bar from displaying and cleans up its
// resources. A closed progress bar cannot be reused.
func (p *ProgressBar) Close() {
	if p.closed {
		panic("close: close on closed progress bar")
	}
	close(p.closeEvent)
	p.closed = true
	fmt.Println() // Jump to the line below the bar
}

// Display starts drawing the progress bar on the screen. It should
// only be called once.
func (p *ProgressBar) Display() {
	go func() {
		currentProgress := p.currentProgress
		maxProgress := p.maxProgress
		width := p.width

		updateEvery := p.updateEvery
		tick := time.NewTicker(updateEvery)
		updateAtIncrement := p.updateAtIncrement

		var elapsedTime time.Duration
		var bar strings.Builder

		for {
			select {
			case currentProgress = <-p.incrementEvent:
				if !updateAtIncrement {
					continue
				}

			case <-tick.C:
				elapsedTime += updateEvery

			case <-p.closeEvent:
				close(p.incrementEvent)
				tick.Stop()
				return

			default:
				continue
			}

			// Redraw the bar in place
			bar.Reset()
			bar.WriteString("|")

			filled := currentProgress / maxProgress * width
			for i := 0.0; i < filled; i++ {
				bar.WriteString("█")
			}
			for i := filled; i < width; i++ {
				bar.WriteString(" ")
			}
			fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]",
				currentProgress/maxProgress*100, elapsedTime)

			fmt.Printf("\n\033[1A\033[K%v", bar.String())
		}
	}()
}
