package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// fakeRunner records the command and writes output into the shared fs.
type fakeRunner struct {
	fs     afero.Fs
	output []byte
	err    error
	stderr string
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.name = name
	f.args = args
	if f.err != nil {
		return commandResult{Stderr: f.stderr, ExitCode: 1}, f.err
	}
	if f.output != nil {
		if err := afero.WriteFile(f.fs, args[len(args)-1], f.output, 0o600); err != nil {
			return commandResult{}, err
		}
	}
	return commandResult{}, nil
}

func newTestExtractor(runner *fakeRunner) *FFmpegExtractor {
	return &FFmpegExtractor{ffmpegPath: "ffmpeg", fs: runner.fs, tempRoot: "/tmp", runner: runner}
}

func TestExtractAudio(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := &fakeRunner{fs: fs, output: []byte("mp3")}
	e := newTestExtractor(runner)

	audio, err := e.ExtractAudio(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if string(audio) != "mp3" {
		t.Errorf("unexpected audio %q", audio)
	}
	if runner.name != "ffmpeg" {
		t.Errorf("expected ffmpeg, got %s", runner.name)
	}

	wantFlags := map[string]string{"-ac": "1", "-ar": "16000"}
	for i, a := range runner.args {
		if want, ok := wantFlags[a]; ok && runner.args[i+1] != want {
			t.Errorf("flag %s: expected %s, got %s", a, want, runner.args[i+1])
		}
	}

	entries, _ := afero.ReadDir(fs, "/tmp")
	if len(entries) != 0 {
		t.Errorf("expected temp dir to be removed, found %d entries", len(entries))
	}
}

func TestExtractAudioFailures(t *testing.T) {
	fs := afero.NewMemMapFs()

	failing := newTestExtractor(&fakeRunner{fs: fs, err: errors.New("exit status 1"), stderr: "line1\nInvalid data found"})
	_, err := failing.ExtractAudio(context.Background(), []byte("video"))
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}

	missing := newTestExtractor(&fakeRunner{fs: fs})
	if _, err := missing.ExtractAudio(context.Background(), []byte("video")); !errors.Is(err, model.ErrSourceUnavailable) {
		t.Fatalf("expected missing output to be SourceUnavailable, got %v", err)
	}

	if _, err := missing.ExtractAudio(context.Background(), nil); !errors.Is(err, model.ErrSourceUnavailable) {
		t.Fatalf("expected empty video to be SourceUnavailable, got %v", err)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\nb\n"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
}
