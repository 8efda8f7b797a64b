package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner executes one shell command line.
type commandRunner func(ctx context.Context, command string) error

// runShell executes a command line via `sh -c`.
func runShell(ctx context.Context, command string) error {
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%v: %s", err, msg)
		}
		return err
	}
	return nil
}

// Command is a notification sink that runs a shell command template once per
// event, for local desktop notifiers like notify-send or osascript. The
// placeholders {title}, {body} and {severity} expand to single-quoted shell
// words, so the template uses them bare:
//
//	notify-send {title} {body}
type Command struct {
	template string
	run      commandRunner
}

// CommandOpts holds parameters for creating a Command sink.
type CommandOpts struct {
	Template string
	// For testing: inject a runner instead of invoking the shell.
	Runner commandRunner
}

// NewCommand creates a Command sink.
func NewCommand(opts CommandOpts) (*Command, error) {
	if strings.TrimSpace(opts.Template) == "" {
		return nil, fmt.Errorf("notify: command: template is required")
	}
	run := opts.Runner
	if run == nil {
		run = runShell
	}
	return &Command{template: opts.Template, run: run}, nil
}

// Connect implements Adapter. There is nothing to connect.
func (c *Command) Connect(ctx context.Context) error { return nil }

// Close implements Adapter.
func (c *Command) Close() error { return nil }

// Send runs the command template once per attached event. A message with no
// events runs the template once with the plain text as the title.
func (c *Command) Send(ctx context.Context, msg Message) error {
	events := msg.Events
	if len(events) == 0 {
		events = []FormattedEvent{{Title: msg.Text, Severity: "info"}}
	}
	for _, evt := range events {
		command := strings.NewReplacer(
			"{title}", shellQuote(evt.Title),
			"{body}", shellQuote(evt.Body),
			"{severity}", shellQuote(evt.Severity),
		).Replace(c.template)
		if err := c.run(ctx, command); err != nil {
			return fmt.Errorf("notify: command: %w", err)
		}
	}
	return nil
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
