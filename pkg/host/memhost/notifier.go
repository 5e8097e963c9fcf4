package memhost

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"mhurbridge/pkg/host"
)

type Notification struct {
	Title    string
	Message  string
	Severity host.Severity
}

var (
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)

	severityColors = map[host.Severity]lipgloss.Color{
		host.SeverityInfo:    lipgloss.Color("39"),
		host.SeverityWarning: lipgloss.Color("214"),
		host.SeverityError:   lipgloss.Color("196"),
	}
)

// Notifier renders notifications as boxes on a terminal writer and keeps a
// history of them.
type Notifier struct {
	mu      sync.Mutex
	w       io.Writer
	history []Notification
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Notify(title string, message string, severity host.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.history = append(n.history, Notification{Title: title, Message: message, Severity: severity})
	if n.w == nil {
		return
	}

	color, ok := severityColors[severity]
	if !ok {
		color = severityColors[host.SeverityInfo]
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Foreground(color).Render(fmt.Sprintf("%s: %s", severity, title)),
		message,
	)
	fmt.Fprintln(n.w, boxStyle.BorderForeground(color).Render(body))
}

// History returns the notifications shown so far.
func (n *Notifier) History() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.history...)
}
