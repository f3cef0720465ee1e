// Package player opens videos in an external media player.
package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/mmcdole/vidsync/internal/domain"
	"github.com/mmcdole/vidsync/internal/metadata"
)

// candidatePlayers defines the preferred player order for each platform
var candidatePlayers = map[string][]string{
	"darwin":  {"iina", "vlc", "mpv"},
	"linux":   {"mpv", "celluloid", "vlc"},
	"windows": {"vlc", "mpv"},
}

// Launcher launches video URLs in an external player
type Launcher struct {
	command string   // configured player command, empty for detection
	args    []string // additional arguments for the player
	logger  *slog.Logger

	lookPath func(file string) (string, error)
	start    func(name string, args ...string) error
}

// NewLauncher creates a launcher. An empty command tries the platform's
// candidate players, then the system default handler.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// PlayableURL is the video's URL without the embedded category and course lists
func PlayableURL(v domain.Video) (string, error) {
	u, err := metadata.Encode(v.VideoURL, nil, nil)
	if err != nil {
		return "", fmt.Errorf("video %s has no playable url: %w", v.ID, err)
	}
	return u, nil
}

// Launch opens the video in the configured player or system default
func (l *Launcher) Launch(v domain.Video) error {
	url, err := PlayableURL(v)
	if err != nil {
		return err
	}

	// Tier 1: User configured a specific player
	if l.command != "" {
		args := append(append([]string{}, l.args...), url)
		l.logger.Info("launching player", "command", l.command, "args", args)
		if err := l.start(l.command, args...); err != nil {
			return fmt.Errorf("failed to launch %s: %w", l.command, err)
		}
		return nil
	}

	// Tier 2: First candidate player found in PATH
	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}
	for _, name := range candidates {
		path, err := l.lookPath(name)
		if err != nil {
			l.logger.Debug("player not available", "player", name)
			continue
		}
		if err := l.start(path, url); err == nil {
			l.logger.Info("launched with detected player", "player", name, "videoID", v.ID)
			return nil
		}
	}

	// Tier 3: System default (open/xdg-open/start)
	name, args := defaultOpener(runtime.GOOS, url)
	l.logger.Info("launching with system default", "os", runtime.GOOS, "videoID", v.ID)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func defaultOpener(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		return "xdg-open", []string{url}
	}
}
