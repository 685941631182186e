package api

// NameRecord is one row in the curated name list, owned by the name registry backend
type NameRecord struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	DetectedEthnicity string `json:"detected_ethnicity,omitempty"`
	NativeScript      string `json:"native_script,omitempty"`
	Status            string `json:"status"`
	LastTested        string `json:"last_tested,omitempty"`
	ExpectedEthnicity string `json:"expected_ethnicity,omitempty"`
	AudioPath         string `json:"audio_path,omitempty"`
}

// Generated indicates the record went through pronunciation generation at least once.
// The three generation fields are written atomically, so audio path alone decides
func (r *NameRecord) Generated() bool {
	return r.AudioPath != ""
}
