package gemini

import "fmt"

// Part is one element of the single user turn sent to the model.
// Exactly one of Text or Image is used.
type Part struct {
	Text  string
	Image *ImageInput
}

type ImageInput struct {
	MimeType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mimeType string, data []byte) Part {
	return Part{Image: &ImageInput{MimeType: mimeType, Data: data}}
}

type Response struct {
	Text         string
	FinishReason string
	ModelVersion string
}

// APIError is a non-2xx answer from the generateContent endpoint.
type APIError struct {
	StatusCode int
	Status     string
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no error message"
	}
	if e.Reason != "" {
		return fmt.Sprintf("gemini API %d %s (%s): %s", e.StatusCode, e.Status, e.Reason, msg)
	}
	return fmt.Sprintf("gemini API %d %s: %s", e.StatusCode, e.Status, msg)
}

// IsAuth reports whether the key was missing, invalid or lacks permission.
func (e *APIError) IsAuth() bool {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return true
	case e.Reason == "API_KEY_INVALID" || e.Reason == "API_KEY_SERVICE_BLOCKED":
		return true
	case e.Status == "UNAUTHENTICATED" || e.Status == "PERMISSION_DENIED":
		return true
	}
	return false
}

// BlockedError is returned when the prompt or the answer was blocked.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "gemini blocked the request: " + e.Reason
}
