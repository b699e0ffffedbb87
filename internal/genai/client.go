// Package genai talks to the Gemini generative media API.
package genai

import (
	"context"
	"errors"
)

// Default model identifiers. Callers may override per request.
const (
	DefaultImageModel  = "gemini-2.0-flash-preview-image-generation"
	DefaultVideoModel  = "veo-2.0-generate-001"
	DefaultTextModel   = "gemini-2.0-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"
)

var ErrNotConfigured = errors.New("genai: api key not configured")

// Blob is one piece of generated media plus its content type.
type Blob struct {
	MimeType string
	Data     []byte
}

type ImageRequest struct {
	Model           string
	Prompt          string
	NegativePrompt  string
	AspectRatio     string
	ReferenceImages []Blob
}

type TextMessage struct {
	Role string // "user" or "model"
	Text string
}

type TextRequest struct {
	Model        string
	SystemPrompt string
	History      []TextMessage
	Message      string
}

type SpeechRequest struct {
	Model string
	Text  string
	Voice string
}

type VideoRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	SourceImage    *Blob // image-to-video when set
}

// VideoOperation is the state of a long-running video generation.
type VideoOperation struct {
	Name     string
	Done     bool
	Error    string
	VideoURI string
	MimeType string
}

// Client is the generation surface the HTTP layer depends on; tests swap in
// a fake.
type Client interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]Blob, error)
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*Blob, error)
	StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideoOperation(ctx context.Context, name string) (*VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) (*Blob, error)
}
