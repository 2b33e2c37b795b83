package types

// Transcript is the recognizer output for one audio file. OK is false when
// the recognizer produced no result.
type Transcript struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

// Sentiment is a classifier decision over one audio file.
type Sentiment struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// NotificationRequest pairs the enriched text with its destination.
type NotificationRequest struct {
	Text  string `json:"text"`
	Phone string `json:"phone"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Transcription string `json:"transcription"`
	Sentiment     string `json:"sentiment"`
}

// StoreResponse is returned by POST /api/upload_mp3.
type StoreResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StoredPath string `json:"stored_path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
