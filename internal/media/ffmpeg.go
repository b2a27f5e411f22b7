package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"scribeflow/internal/runner"
)

// Extractor converts input media to the mono 16 kHz PCM WAV the speech
// engines expect, working in a disposable temp directory.
type Extractor struct {
	ffmpegPath string
	runner     runner.Runner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
	stat       func(name string) (os.FileInfo, error)
}

// NewExtractor builds an extractor using the given ffmpeg binary.
func NewExtractor(ffmpegPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{
		ffmpegPath: ffmpegPath,
		runner:     runner.Exec{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
	}
}

// Extract produces the preprocessed WAV and a cleanup func for its temp dir.
func (e *Extractor) Extract(ctx context.Context, inputPath string) (string, func(), error) {
	if _, err := e.stat(inputPath); err != nil {
		return "", nil, fmt.Errorf("cannot access input media %s: %w", inputPath, err)
	}

	tempDir, err := e.mkdirTemp("", "scribeflow-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp workspace: %w", err)
	}
	cleanup := func() { _ = e.removeAll(tempDir) }

	outPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	args := buildFFmpegArgs(inputPath, outPath)
	if _, err := e.runner.Run(ctx, e.ffmpegPath, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg audio conversion: %w", err)
	}

	if _, err := e.stat(outPath); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg completed but output is missing: %w", err)
	}
	return outPath, cleanup, nil
}

// buildFFmpegArgs builds CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// NewExtractorForTests constructs an extractor with injectable dependencies.
func NewExtractorForTests(
	ffmpegPath string,
	r runner.Runner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *Extractor {
	return &Extractor{
		ffmpegPath: ffmpegPath,
		runner:     r,
		mkdirTemp:  mkdirTemp,
		removeAll:  removeAll,
		stat:       stat,
	}
}
