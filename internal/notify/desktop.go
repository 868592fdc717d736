package notify

import (
	"context"
	"os/exec"
	"time"
)

const appName = "jarvis"

// Desktop shows a notification bubble through notify-send.
func Desktop(summary, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return exec.CommandContext(ctx, "notify-send", desktopArgs(summary, body)...).Run()
}

func desktopArgs(summary, body string) []string {
	args := []string{"--app-name", appName, summary}
	if body != "" {
		args = append(args, body)
	}
	return args
}
