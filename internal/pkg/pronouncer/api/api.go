package api

import "context"

// Pronouncer invokes one pronunciation backend
type Pronouncer interface {
	Pronounce(ctx context.Context, name, voiceID string) (*Output, error)
	PronounceAll(ctx context.Context, name string) (*MultiOutput, error)
	PronounceGeneral(ctx context.Context, name string) (*MultiOutput, error)
	Voices(ctx context.Context) ([]Voice, error)
}

// SelectionAutomaticSpecific marks a response where the backend picked
// a concrete voice on its own. It is the only selection method that
// triggers the operator notice
const SelectionAutomaticSpecific = "automatic_specific"

// Voice scopes for alternative pronunciations
const (
	// ScopeSpecialized - ethnicity tuned voices
	ScopeSpecialized = "specialized"
	// ScopeGeneral - general purpose voices
	ScopeGeneral = "general"
)

// EthnicityResult keeps ethnicity detection part of the response
type EthnicityResult struct {
	Ethnicity    string   `json:"ethnicity"`
	Confidence   float64  `json:"confidence"`
	Alternatives []string `json:"alternatives"`
	Details      string   `json:"details"`
}

// TransliterationResult keeps native script part of the response
type TransliterationResult struct {
	NativeScript string `json:"native_script"`
	Successful   bool   `json:"transliteration_successful"`
	Details      string `json:"details,omitempty"`
}

// PronunciationResult keeps synthesized audio part of the response
type PronunciationResult struct {
	AudioOutput     string `json:"audio_output,omitempty"`
	Status          string `json:"status"`
	Details         string `json:"details"`
	VoiceIDUsed     string `json:"voice_id_used,omitempty"`
	SelectionMethod string `json:"selection_method,omitempty"`
	VoiceName       string `json:"voice_name,omitempty"`
}

// Output is one full generation response
type Output struct {
	Ethnicity       EthnicityResult       `json:"ethnicity_result"`
	Transliteration TransliterationResult `json:"transliteration_result"`
	Pronunciation   PronunciationResult   `json:"pronunciation_result"`
}

// MultiOutput is a response with one rendering per voice
type MultiOutput struct {
	Ethnicity       EthnicityResult       `json:"ethnicity_result"`
	Transliteration TransliterationResult `json:"transliteration_result"`
	Pronunciations  []PronunciationResult `json:"pronunciation_result"`
}

// Voice describes one available TTS voice
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
