package whisper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeflow/internal/runner"
)

const sampleOutput = `{
  "transcription": [
    {
      "offsets": {"from": 0, "to": 1000},
      "text": " Hello there",
      "tokens": [
        {"text": "[_BEG_]", "offsets": {"from": 0, "to": 0}},
        {"text": " Hello", "offsets": {"from": 0, "to": 420}},
        {"text": " there", "offsets": {"from": 420, "to": 1000}}
      ]
    },
    {
      "offsets": {"from": 1000, "to": 3000},
      "text": " How are you"
    },
    {
      "offsets": {"from": 3000, "to": 3200},
      "text": "   "
    }
  ]
}`

func TestParseJSON(t *testing.T) {
	chunks, err := ParseJSON([]byte(sampleOutput))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0.0, chunks[0].Start)
	assert.Equal(t, 1.0, chunks[0].End)
	assert.Equal(t, "Hello there", chunks[0].Text)

	// Control tokens are dropped, real words keep their timings.
	require.Len(t, chunks[0].Words, 2)
	assert.Equal(t, "Hello", chunks[0].Words[0].Token)
	assert.InDelta(t, 0.42, chunks[0].Words[0].End, 1e-9)

	assert.Equal(t, 1.0, chunks[1].Start)
	assert.Equal(t, 3.0, chunks[1].End)
	assert.Empty(t, chunks[1].Words)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := ParseJSON([]byte("not json"))
	require.Error(t, err)
}

func TestParseJSONEmpty(t *testing.T) {
	chunks, err := ParseJSON([]byte(`{"transcription": []}`))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

type captureRunner struct {
	name string
	args []string
	err  error
}

func (r *captureRunner) Run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	r.name = name
	r.args = args
	return runner.Result{}, r.err
}

type fakeFileInfo struct {
	name string
	dir  bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() any           { return nil }

func TestTranscribeInvokesBinary(t *testing.T) {
	r := &captureRunner{}
	eng := NewForTests(
		"/usr/local/bin/whisper.cpp", "/models/ggml-base.bin", "en",
		r,
		func(dir, pattern string) (string, error) { return "/tmp/work", nil },
		func(name string) ([]byte, error) {
			assert.Equal(t, "/tmp/work/transcript.json", name)
			return []byte(sampleOutput), nil
		},
		func(name string) (os.FileInfo, error) {
			return fakeFileInfo{name: "ggml-base.bin"}, nil
		},
	)

	chunks, err := eng.Transcribe(context.Background(), "/in/audio.wav")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "/usr/local/bin/whisper.cpp", r.name)
	assert.Equal(t, []string{
		"-m", "/models/ggml-base.bin",
		"-f", "/in/audio.wav",
		"-of", "/tmp/work/transcript",
		"-oj",
		"-l", "en",
	}, r.args)
}

func TestTranscribeAutoLanguageOmitsFlag(t *testing.T) {
	r := &captureRunner{}
	eng := NewForTests(
		"whisper.cpp", "/models/ggml-base.bin", "auto",
		r,
		func(dir, pattern string) (string, error) { return "/tmp/work", nil },
		func(name string) ([]byte, error) { return []byte(sampleOutput), nil },
		func(name string) (os.FileInfo, error) { return fakeFileInfo{}, nil },
	)

	_, err := eng.Transcribe(context.Background(), "/in/audio.wav")
	require.NoError(t, err)
	assert.NotContains(t, r.args, "-l")
}

func TestTranscribeEngineFailure(t *testing.T) {
	r := &captureRunner{err: errors.New("exit status 1")}
	eng := NewForTests(
		"whisper.cpp", "/models/ggml-base.bin", "",
		r,
		func(dir, pattern string) (string, error) { return "/tmp/work", nil },
		func(name string) ([]byte, error) { t.Fatal("output should not be read"); return nil, nil },
		func(name string) (os.FileInfo, error) { return fakeFileInfo{}, nil },
	)

	_, err := eng.Transcribe(context.Background(), "/in/audio.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whisper.cpp")
}

func TestTranscribeMissingModelPath(t *testing.T) {
	eng := NewForTests(
		"whisper.cpp", "", "",
		&captureRunner{},
		func(dir, pattern string) (string, error) { return "/tmp/work", nil },
		func(name string) ([]byte, error) { return nil, nil },
		func(name string) (os.FileInfo, error) { return nil, os.ErrNotExist },
	)

	_, err := eng.Transcribe(context.Background(), "/in/audio.wav")
	require.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/m/model.bin", "/a.wav", "/tmp/out", "de")
	assert.Equal(t, []string{"-m", "/m/model.bin", "-f", "/a.wav", "-of", "/tmp/out", "-oj", "-l", "de"}, args)
}
