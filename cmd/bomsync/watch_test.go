package main

import (
	"strings"
	"testing"

	"github.com/zulandar/bomsync/internal/config"
)

func TestWatchCmd_Help(t *testing.T) {
	out, err := runCommand(t, "", "watch", "--help")
	if err != nil {
		t.Fatalf("watch --help failed: %v", err)
	}
	for _, want := range []string{"notification", "Slack", "Discord", "refresh_cron"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to contain %q, got: %s", want, out)
		}
	}
}

func TestWatchCmd_NothingToRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	if _, err := runCommand(t, "", "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init: %v", err)
	}

	_, err := runCommand(t, "", "watch", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected error with no sinks and no schedule")
	}
	if !strings.Contains(err.Error(), "nothing to run") {
		t.Errorf("error = %q, want nothing-to-run", err.Error())
	}
}

func TestBuildAdapters(t *testing.T) {
	tests := []struct {
		name    string
		notify  config.NotifyConfig
		count   int
		wantErr string
	}{
		{name: "none", count: 0},
		{
			name:   "slack",
			notify: config.NotifyConfig{Slack: config.SlackConfig{Token: "xoxb-1", Channel: "C1"}},
			count:  1,
		},
		{
			name:    "slack missing channel",
			notify:  config.NotifyConfig{Slack: config.SlackConfig{Token: "xoxb-1"}},
			wantErr: "slack: channel is required",
		},
		{
			name:    "slack missing token",
			notify:  config.NotifyConfig{Slack: config.SlackConfig{Channel: "C1"}},
			wantErr: "slack: bot token is required",
		},
		{
			name:   "discord",
			notify: config.NotifyConfig{Discord: config.DiscordConfig{Token: "bot-1", Channel: "D1"}},
			count:  1,
		},
		{
			name:    "discord missing token",
			notify:  config.NotifyConfig{Discord: config.DiscordConfig{Channel: "D1"}},
			wantErr: "discord: bot token is required",
		},
		{
			name:   "command",
			notify: config.NotifyConfig{Command: "notify-send {title} {body}"},
			count:  1,
		},
		{
			name: "all three",
			notify: config.NotifyConfig{
				Slack:   config.SlackConfig{Token: "xoxb-1", Channel: "C1"},
				Discord: config.DiscordConfig{Token: "bot-1", Channel: "D1"},
				Command: "notify-send {title}",
			},
			count: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Notify: tt.notify}
			adapters, err := buildAdapters(cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildAdapters: %v", err)
			}
			if len(adapters) != tt.count {
				t.Errorf("len(adapters) = %d, want %d", len(adapters), tt.count)
			}
		})
	}
}
