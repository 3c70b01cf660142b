package protocol

import (
	"encoding/json"
	"fmt"
)

// TranslationRequest is the client-to-server frame carrying one utterance.
// Q holds one or more source strings translated as a single batch.
type TranslationRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source *string  `json:"source"`
	Format *string  `json:"format"`
	Model  *string  `json:"model"`
}

// TranslationResponse is the server-to-client success frame.
type TranslationResponse struct {
	Data TranslationsData `json:"data"`
}

// TranslationsData wraps the ordered list of translations.
type TranslationsData struct {
	Translations []Translation `json:"translations"`
}

// Translation holds a single translated string. Index i corresponds to
// index i of the request's Q.
type Translation struct {
	TranslatedText string `json:"translatedText"`
}

// ErrorFrame is the server-to-client failure frame. Its schema is disjoint
// from TranslationResponse so clients can tell the two apart.
type ErrorFrame struct {
	Error string `json:"error"`
}

// Canonical error frame messages.
const (
	ErrorTranslationFailed = "Translation failed"
	ErrorInvalidRequest    = "Invalid request"
)

// DefaultFormat is applied to requests that do not specify a format.
const DefaultFormat = "text"

// NewRequest builds a TranslationRequest with the default text format.
func NewRequest(texts []string, target string) *TranslationRequest {
	format := DefaultFormat
	return &TranslationRequest{
		Q:      texts,
		Target: target,
		Format: &format,
	}
}

// Validate checks the request invariants: a non-empty batch and a target
// language code.
func (r *TranslationRequest) Validate() error {
	if len(r.Q) == 0 {
		return fmt.Errorf("q must contain at least one string")
	}
	for i, text := range r.Q {
		if text == "" {
			return fmt.Errorf("q[%d] is empty", i)
		}
	}
	if r.Target == "" {
		return fmt.Errorf("target language is required")
	}
	return nil
}

// Texts returns the translated strings in request order.
func (r *TranslationResponse) Texts() []string {
	texts := make([]string, len(r.Data.Translations))
	for i, t := range r.Data.Translations {
		texts[i] = t.TranslatedText
	}
	return texts
}

// EncodeRequest serializes a validated request to a wire frame.
func EncodeRequest(req *TranslationRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid translation request: %w", err)
	}
	return json.Marshal(req)
}

// DecodeRequest parses and validates a client frame.
func DecodeRequest(data []byte) (*TranslationRequest, error) {
	var req TranslationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("malformed translation request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid translation request: %w", err)
	}
	return &req, nil
}

// EncodeResponse serializes a success frame.
func EncodeResponse(resp *TranslationResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// EncodeError serializes a failure frame.
func EncodeError(message string) []byte {
	data, _ := json.Marshal(ErrorFrame{Error: message})
	return data
}

// DecodeServerFrame parses a server frame as either a success response or an
// error frame. Exactly one of the two return values is non-nil on success.
func DecodeServerFrame(data []byte) (*TranslationResponse, *ErrorFrame, error) {
	var errFrame ErrorFrame
	if err := json.Unmarshal(data, &errFrame); err == nil && errFrame.Error != "" {
		return nil, &errFrame, nil
	}

	var resp TranslationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, nil, fmt.Errorf("malformed server frame: %w", err)
	}
	if resp.Data.Translations == nil {
		return nil, nil, fmt.Errorf("server frame matches neither response nor error schema")
	}
	return &resp, nil, nil
}
