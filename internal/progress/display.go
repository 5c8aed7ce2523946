package progress

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lamim/folioforge/pkg/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	barWidth      = 24
	labelMaxRunes = 40
)

// Display periodically renders a Monitor snapshot to a writer. It can be
// started and stopped any number of times.
type Display struct {
	monitor  *Monitor
	out      io.Writer
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewDisplay creates a display that renders every interval
func NewDisplay(monitor *Monitor, out io.Writer, interval time.Duration) *Display {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Display{monitor: monitor, out: out, interval: interval}
}

// Start launches the render loop. Starting a running display does nothing.
func (d *Display) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.running = true

	go d.loop(d.stop, d.done)
}

// Stop asks the render loop to exit and returns immediately. The returned
// channel is closed once the loop has exited. Stopping a stopped display
// returns a closed channel.
func (d *Display) Stop() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	close(d.stop)
	d.running = false
	return d.done
}

// Running reports whether the render loop is active
func (d *Display) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Display) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_, _ = io.WriteString(d.out, Render(d.monitor.Snapshot()))
		}
	}
}

// Render formats a snapshot as a status board, one line per section in
// section-number order
func Render(snapshot map[string]models.ProgressRecord) string {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return models.LessSectionNumber(ids[i], ids[j]) })

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Generation progress (%s)", time.Now().Format("15:04:05"))))
	b.WriteString("\n")

	totalWords := 0
	for _, id := range ids {
		rec := snapshot[id]
		totalWords += rec.Words

		status := runningStyle.Render("generating")
		switch rec.Status {
		case models.ProgressComplete:
			status = doneStyle.Render("complete  ")
		case models.ProgressFailed:
			status = failedStyle.Render("failed    ")
		}

		label := rec.CurrentUnit
		if rec.Status == models.ProgressFailed {
			label = rec.Error
		}
		if r := []rune(label); len(r) > labelMaxRunes {
			label = string(r[:labelMaxRunes-3]) + "..."
		}

		fmt.Fprintf(&b, "  %-6s %s %s %3d/%-3d %6d words %8s  %s\n",
			id,
			status,
			bar(rec.CompletedUnits, rec.TotalUnits),
			rec.CompletedUnits, rec.TotalUnits,
			rec.Words,
			rec.Elapsed().Truncate(time.Second),
			dimStyle.Render(label))
	}
	fmt.Fprintf(&b, "  total: %d sections, %d words\n", len(ids), totalWords)
	return b.String()
}

func bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}
