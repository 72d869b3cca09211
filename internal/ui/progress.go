package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Watchable is the slice of a background task the renderer needs.
type Watchable interface {
	Name() string
	Progress() (string, float64)
	Done() <-chan struct{}
}

// NewProgressBar creates a percent progress bar in modctl styling.
func NewProgressBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// NewSpinner creates a spinner for unknown-length operations.
func NewSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(10),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// WatchTask renders a task's progress until it completes. Blocks the
// calling goroutine; the task itself runs on its own worker.
func WatchTask(t Watchable) {
	bar := NewSpinner(t.Name())
	determinate := false

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.Done():
			if determinate {
				bar.Set(100)
			}
			bar.Finish()
			return
		case <-ticker.C:
			message, ratio := t.Progress()
			if ratio >= 0 && !determinate {
				bar = NewProgressBar(t.Name())
				determinate = true
			}
			if message != "" {
				bar.Describe(fmt.Sprintf("%s: %s", t.Name(), message))
			}
			if determinate {
				bar.Set(int(ratio * 100))
			} else {
				bar.Add(1)
			}
		}
	}
}
