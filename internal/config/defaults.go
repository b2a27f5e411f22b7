package config

import (
	"os"
	"path/filepath"

	"scribeflow/internal/domain"
)

// DefaultPath returns the standard settings file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".scribeflow", "settings.json")
}

// DefaultSettings returns baseline configuration for first launch.
// Multi-speaker content types diarize by default; single-voice ones do not.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		WatchDir:  filepath.Join(homeDir, "Recordings", "inbox"),
		OutputDir: filepath.Join(homeDir, "Documents", "Transcripts"),

		FFmpegPath:  "ffmpeg",
		WhisperPath: "whisper.cpp",
		ModelPath:   filepath.Join(homeDir, ".scribeflow", "models"),
		Language:    "auto",

		OllamaURL:    "http://localhost:11434",
		SummaryModel: "llama3.1",

		DiarizeByType: map[domain.ContentType]bool{
			domain.ContentTypeMeeting:   true,
			domain.ContentTypeInterview: true,
			domain.ContentTypeLecture:   false,
			domain.ContentTypeVoiceNote: false,
		},
		DiarizeBySubcategory: map[string]bool{},

		GroupedOutput: true,
		MaxSilenceSec: 3.0,
		LookAroundSec: 2.0,

		QuietPeriodSec:       2.0,
		MaxRetries:           2,
		TranscribeTimeoutMin: 90,
		DiarizeTimeoutMin:    45,
		SummarizeTimeoutMin:  10,
	}
}
