// Package transcode extracts a speech-ready audio track from video with a
// local ffmpeg binary.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// commandResult is a finished process's output
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// FFmpegExtractor converts video bytes to 16kHz mono MP3 through ffmpeg.
// Input and output live in a private temp directory that is removed after
// every call.
type FFmpegExtractor struct {
	ffmpegPath string
	fs         afero.Fs
	tempRoot   string
	runner     commandRunner
}

// NewFFmpegExtractor builds an extractor on the OS filesystem
func NewFFmpegExtractor(ffmpegPath, tempRoot string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{
		ffmpegPath: ffmpegPath,
		fs:         afero.NewOsFs(),
		tempRoot:   tempRoot,
		runner:     &execRunner{},
	}
}

// ExtractAudio implements source.AudioExtractor
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, video []byte) ([]byte, error) {
	const op = "extract audio"
	if len(video) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable, op, "empty video payload")
	}

	dir, err := afero.TempDir(e.fs, e.tempRoot, "extract-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = e.fs.RemoveAll(dir) }()

	input := filepath.Join(dir, "input.mp4")
	output := filepath.Join(dir, "audio.mp3")
	if err := afero.WriteFile(e.fs, input, video, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write video: %w", err)
	}

	res, err := e.runner.Run(ctx, e.ffmpegPath, buildArgs(input, output)...)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, op,
			fmt.Errorf("ffmpeg exited with code %d: %s: %w", res.ExitCode, lastLine(res.Stderr), err))
	}

	audio, err := afero.ReadFile(e.fs, output)
	if err != nil {
		return nil, model.NewError(model.KindSourceUnavailable, op,
			fmt.Errorf("ffmpeg completed but output file is missing: %w", err))
	}
	if len(audio) == 0 {
		return nil, model.Errorf(model.KindSourceUnavailable, op, "ffmpeg produced an empty audio file")
	}
	return audio, nil
}

func buildArgs(input, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "64k",
		output,
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
