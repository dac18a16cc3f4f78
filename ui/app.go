// Package ui renders a live view of a running dictionary attack.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wpacrack/wpacrack/internal/crack"
	"github.com/wpacrack/wpacrack/internal/result"
	"github.com/wpacrack/wpacrack/pkg/wpa"
)

// App is the Bubble Tea model for one crack run.
type App struct {
	cancel   context.CancelFunc
	progress <-chan crack.Progress
	doneCh   <-chan *result.CrackResult

	essid string
	bssid string

	current crack.Progress
	res     *result.CrackResult
	started time.Time
	elapsed time.Duration
	width   int
}

type tickMsg time.Time
type progressMsg crack.Progress
type doneMsg *result.CrackResult

// RunCrack executes the cracker under a TUI and returns its result. Keyboard
// cancellation maps onto the same context cancellation the cracker honors at
// batch boundaries.
func RunCrack(ctx context.Context, cancel context.CancelFunc, cracker *crack.Cracker, hs *wpa.Handshake, words []string) (*result.CrackResult, error) {
	doneCh := make(chan *result.CrackResult, 1)
	go func() {
		doneCh <- cracker.Run(ctx, hs, words)
	}()

	app := &App{
		cancel:   cancel,
		progress: cracker.Progress(),
		doneCh:   doneCh,
		essid:    hs.SSID,
		bssid:    hs.BSSID,
		started:  time.Now(),
	}

	model, err := tea.NewProgram(app).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	final := model.(*App)
	if final.res != nil {
		return final.res, nil
	}
	// TUI exited before the run finished (cancellation); the cracker still
	// owes us its terminal result.
	return <-doneCh, nil
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tickCmd(), a.waitForUpdate())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.cancel()
			return a, nil
		}
		return a, nil

	case tickMsg:
		a.elapsed = time.Since(a.started)
		return a, tickCmd()

	case progressMsg:
		a.current = crack.Progress(msg)
		return a, a.waitForUpdate()

	case doneMsg:
		a.res = msg
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wpacrack"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Target:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s [%s]", a.essid, a.bssid)))
	b.WriteString("\n")

	mode := a.current.Mode
	style := modeCPUStyle
	if mode == "GPU" {
		style = modeGPUStyle
	}
	if mode == "" {
		mode = "..."
	}
	b.WriteString(labelStyle.Render("Engine:  "))
	b.WriteString(style.Render(mode))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Rate:    "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.0f H/s", a.current.HashesPerSec)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Tested:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d / %d", a.current.Tested, a.current.Total)))
	b.WriteString("   ")
	b.WriteString(valueStyle.Render(a.elapsed.Truncate(time.Second).String()))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Last:    "))
	b.WriteString(valueStyle.Render(a.current.Password))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render(a.renderBar()))
	b.WriteString("\n\n")

	if a.res != nil {
		switch a.res.Status {
		case result.StatusSuccess:
			b.WriteString(successStyle.Render("Passphrase: " + a.res.Password))
		case result.StatusNotFound:
			b.WriteString(failStyle.Render("Wordlist exhausted, no match."))
		case result.StatusCancelled:
			b.WriteString(failStyle.Render("Cancelled."))
		case result.StatusError:
			b.WriteString(failStyle.Render("Error: " + a.res.Reason))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(hintStyle.Render("q to cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func (a *App) renderBar() string {
	const width = 40
	if a.current.Total == 0 {
		return barEmptyStyle.Render(strings.Repeat("░", width))
	}
	filled := width * a.current.Tested / a.current.Total
	if filled > width {
		filled = width
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// waitForUpdate blocks on either a progress snapshot or the terminal result.
func (a *App) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case p, ok := <-a.progress:
			if !ok {
				return doneMsg(<-a.doneCh)
			}
			return progressMsg(p)
		case res := <-a.doneCh:
			return doneMsg(res)
		}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
