// Package whisper adapts whisper.cpp as the transcription engine. The
// binary is a black box producing time-coded chunks; everything past its
// JSON output belongs to the pipeline.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scribeflow/internal/domain"
	"scribeflow/internal/runner"
)

// Engine invokes whisper.cpp and parses its JSON transcript output.
type Engine struct {
	binPath   string
	modelPath string
	language  string
	runner    runner.Runner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
	readDir   func(name string) ([]os.DirEntry, error)
	stat      func(name string) (os.FileInfo, error)
}

// New builds an engine around the given whisper.cpp binary and model path.
// modelPath may be a model file or a directory of models.
func New(binPath, modelPath, language string) *Engine {
	if binPath == "" {
		binPath = "whisper.cpp"
	}
	return &Engine{
		binPath:   binPath,
		modelPath: modelPath,
		language:  language,
		runner:    runner.Exec{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
		readDir:   os.ReadDir,
		stat:      os.Stat,
	}
}

// Transcribe runs the engine on one audio file and returns ordered chunks.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) ([]domain.TranscriptChunk, error) {
	model, err := e.resolveModelPath()
	if err != nil {
		return nil, err
	}

	tempDir, err := e.mkdirTemp("", "scribeflow-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create temp workspace: %w", err)
	}
	defer func() { _ = e.removeAll(tempDir) }()

	outBase := filepath.Join(tempDir, "transcript")
	args := buildArgs(model, audioPath, outBase, e.language)
	if _, err := e.runner.Run(ctx, e.binPath, args...); err != nil {
		return nil, fmt.Errorf("whisper.cpp: %w", err)
	}

	data, err := e.readFile(outBase + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp completed but JSON output is missing: %w", err)
	}
	return ParseJSON(data)
}

// output mirrors the relevant part of whisper.cpp's -oj format. Offsets are
// milliseconds from the start of the audio.
type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text   string `json:"text"`
		Tokens []struct {
			Text    string `json:"text"`
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
		} `json:"tokens,omitempty"`
	} `json:"transcription"`
}

// ParseJSON converts whisper.cpp JSON output into transcript chunks.
// Word-level timestamps are carried over when token data is present.
func ParseJSON(data []byte) ([]domain.TranscriptChunk, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp output: %w", err)
	}

	chunks := make([]domain.TranscriptChunk, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		chunk := domain.TranscriptChunk{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  text,
		}
		for _, tok := range seg.Tokens {
			word := strings.TrimSpace(tok.Text)
			// whisper emits control tokens like [_BEG_] alongside words.
			if word == "" || strings.HasPrefix(word, "[_") {
				continue
			}
			chunk.Words = append(chunk.Words, domain.Word{
				Start: float64(tok.Offsets.From) / 1000,
				End:   float64(tok.Offsets.To) / 1000,
				Token: word,
			})
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// resolveModelPath returns the model file from a file or directory setting.
func (e *Engine) resolveModelPath() (string, error) {
	modelPath := strings.TrimSpace(e.modelPath)
	if modelPath == "" {
		return "", fmt.Errorf("model path is required")
	}

	info, err := e.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path %s: %w", modelPath, err)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := e.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory %s: %w", modelPath, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in %s", modelPath)
	}

	sort.Strings(names)
	return filepath.Join(modelPath, names[0]), nil
}

// buildArgs builds whisper.cpp args for JSON transcript export.
func buildArgs(modelPath, audioPath, outBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// NewForTests constructs an engine with injectable dependencies.
func NewForTests(
	binPath, modelPath, language string,
	r runner.Runner,
	mkdirTemp func(dir, pattern string) (string, error),
	readFile func(name string) ([]byte, error),
	stat func(name string) (os.FileInfo, error),
) *Engine {
	return &Engine{
		binPath:   binPath,
		modelPath: modelPath,
		language:  language,
		runner:    r,
		mkdirTemp: mkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  readFile,
		readDir:   os.ReadDir,
		stat:      stat,
	}
}
