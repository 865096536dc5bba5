package main

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

var visitingRe = regexp.MustCompile(`^Visiting page (\d+)/(\d+):`)

// parseVisiting extracts i and n from a "Visiting page i/n: url" step.
func parseVisiting(step string) (int, int, bool) {
	m := visitingRe.FindStringSubmatch(step)
	if m == nil {
		return 0, 0, false
	}
	i, err1 := strconv.Atoi(m[1])
	n, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || n <= 0 {
		return 0, 0, false
	}
	return i, n, true
}

// watchTask polls id until it reaches the done stage and hands every new
// step to onStep in order.
func watchTask(ctx context.Context, c *client, id string, interval time.Duration, onStep func(string)) (*taskResp, error) {
	if interval <= 0 {
		interval = time.Second
	}
	seen := 0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		task, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		// Steps are append-only.
		for ; seen < len(task.Steps); seen++ {
			if onStep != nil {
				onStep(task.Steps[seen])
			}
		}
		if task.Stage == string(domain.StageDone) {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// progress renders steps as a spinner while searching or summarizing and a
// progress bar while pages are visited. Non-terminal output gets plain lines.
type progress struct {
	out     io.Writer
	ui      *ui
	tty     bool
	spin    *spinner.Spinner
	bar     *progressbar.ProgressBar
	visited int
}

func newProgress(out io.Writer, u *ui, tty bool) *progress {
	p := &progress{out: out, ui: u, tty: tty}
	if tty {
		p.spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(out))
		p.spin.Suffix = " Starting research..."
		p.spin.Start()
	}
	return p
}

func (p *progress) step(s string) {
	if !p.tty {
		fmt.Fprintf(p.out, "%s %s\n", p.ui.dim("-"), s)
		return
	}
	_, n, ok := parseVisiting(s)
	if !ok {
		if p.bar != nil {
			_ = p.bar.Finish()
			p.bar = nil
			p.spin.Start()
		}
		p.spin.Suffix = " " + s
		return
	}
	if p.bar == nil {
		p.spin.Stop()
		p.bar = progressbar.NewOptions(n,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Visiting pages"),
			progressbar.OptionSetWidth(18),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	// Pages run concurrently, so count visits rather than trusting i.
	p.visited++
	_ = p.bar.Set(p.visited)
}

func (p *progress) stop() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	if p.spin != nil {
		p.spin.Stop()
	}
}
