package domain

// Settings contains user-editable runtime configuration. Values persist in
// the JSON settings store; a subset can be overridden through environment
// variables at startup.
type Settings struct {
	WatchDir  string `json:"watchDir" env:"SCRIBEFLOW_WATCH_DIR"`
	OutputDir string `json:"outputDir" env:"SCRIBEFLOW_OUTPUT_DIR"`

	FFmpegPath   string `json:"ffmpegPath" env:"SCRIBEFLOW_FFMPEG"`
	WhisperPath  string `json:"whisperPath" env:"SCRIBEFLOW_WHISPER"`
	ModelPath    string `json:"modelPath" env:"SCRIBEFLOW_MODEL"`
	Language     string `json:"language" env:"SCRIBEFLOW_LANGUAGE"`
	DiarizerPath string `json:"diarizerPath" env:"SCRIBEFLOW_DIARIZER"`

	OllamaURL    string `json:"ollamaUrl" env:"SCRIBEFLOW_OLLAMA_URL"`
	SummaryModel string `json:"summaryModel" env:"SCRIBEFLOW_SUMMARY_MODEL"`

	// Stage toggles. Diarization defaults are resolved per job by the stage
	// toggle policy; anonymize/summarize switch their stages globally.
	DiarizeByType        map[ContentType]bool `json:"diarizeByType"`
	DiarizeBySubcategory map[string]bool      `json:"diarizeBySubcategory"`
	Anonymize            bool                 `json:"anonymize"`
	Summarize            bool                 `json:"summarize"`

	// RedactNames lists additional literal names the anonymizer redacts on
	// top of its built-in email and phone patterns.
	RedactNames []string `json:"redactNames,omitempty"`

	GroupedOutput bool    `json:"groupedOutput"`
	MaxSilenceSec float64 `json:"maxSilenceSec"`
	LookAroundSec float64 `json:"lookAroundSec"`
	OverlapOnly   bool    `json:"overlapOnly"`

	QuietPeriodSec       float64 `json:"quietPeriodSec"`
	MaxRetries           int     `json:"maxRetries"`
	TranscribeTimeoutMin int     `json:"transcribeTimeoutMin"`
	DiarizeTimeoutMin    int     `json:"diarizeTimeoutMin"`
	SummarizeTimeoutMin  int     `json:"summarizeTimeoutMin"`
}

// SubcategoryKey builds the lookup key for subcategory-level diarization
// defaults.
func SubcategoryKey(ct ContentType, sub string) string {
	return string(ct) + "/" + sub
}
