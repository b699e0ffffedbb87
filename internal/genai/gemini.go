package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements Client against the Google generative language
// REST API.
type GeminiClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *GeminiClient) post(ctx context.Context, path string, payload, out interface{}) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := c.baseURL + path + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("genai request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := geminiAPIError{}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("genai: %s (%d)", apiErr.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("genai: unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

func (c *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) ([]Blob, error) {
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt += "\nAvoid: " + req.NegativePrompt
	}
	if req.AspectRatio != "" {
		prompt += "\nAspect ratio: " + req.AspectRatio
	}
	parts := []geminiPart{{Text: prompt}}
	for _, ref := range req.ReferenceImages {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: ref.MimeType,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}
	payload := geminiGenerateRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}
	out := geminiGenerateResponse{}
	if err := c.post(ctx, "/models/"+model+":generateContent", payload, &out); err != nil {
		return nil, err
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("genai: prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	images := []Blob{}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode image payload: %w", err)
			}
			images = append(images, Blob{MimeType: part.InlineData.MimeType, Data: data})
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("genai: model returned no image")
	}
	return images, nil
}

func (c *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultTextModel
	}
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, msg := range req.History {
		contents = append(contents, geminiContent{Role: msg.Role, Parts: []geminiPart{{Text: msg.Text}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Message}}})
	payload := geminiGenerateRequest{Contents: contents}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	out := geminiGenerateResponse{}
	if err := c.post(ctx, "/models/"+model+":generateContent", payload, &out); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("genai: model returned no text")
	}
	return sb.String(), nil
}

func (c *GeminiClient) GenerateSpeech(ctx context.Context, req SpeechRequest) (*Blob, error) {
	model := req.Model
	if model == "" {
		model = DefaultSpeechModel
	}
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	speechCfg := &geminiSpeechConfig{}
	speechCfg.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
	payload := geminiGenerateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Text}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speechCfg,
		},
	}
	out := geminiGenerateResponse{}
	if err := c.post(ctx, "/models/"+model+":generateContent", payload, &out); err != nil {
		return nil, err
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode audio payload: %w", err)
			}
			// The TTS models emit raw PCM; wrap it so browsers can play it.
			if rate, ok := pcmSampleRate(part.InlineData.MimeType); ok {
				return &Blob{MimeType: "audio/wav", Data: wavFromPCM(data, rate)}, nil
			}
			return &Blob{MimeType: part.InlineData.MimeType, Data: data}, nil
		}
	}
	return nil, fmt.Errorf("genai: model returned no audio")
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoStartRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters struct {
		AspectRatio    string `json:"aspectRatio,omitempty"`
		NegativePrompt string `json:"negativePrompt,omitempty"`
	} `json:"parameters"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (op veoOperation) toVideoOperation() *VideoOperation {
	result := VideoOperation{Name: op.Name, Done: op.Done, MimeType: "video/mp4"}
	if op.Error != nil {
		result.Error = op.Error.Message
	}
	if op.Response != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 {
			result.VideoURI = samples[0].Video.URI
		}
	}
	return &result
}

func (c *GeminiClient) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	model := req.Model
	if model == "" {
		model = DefaultVideoModel
	}
	instance := veoInstance{Prompt: req.Prompt}
	if req.SourceImage != nil {
		instance.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.SourceImage.Data),
			MimeType:           req.SourceImage.MimeType,
		}
	}
	payload := veoStartRequest{Instances: []veoInstance{instance}}
	payload.Parameters.AspectRatio = req.AspectRatio
	payload.Parameters.NegativePrompt = req.NegativePrompt

	op := veoOperation{}
	if err := c.post(ctx, "/models/"+model+":predictLongRunning", payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("genai: video operation has no name")
	}
	log.Debug().Str("operation", op.Name).Msg("video generation started")
	return op.toVideoOperation(), nil
}

func (c *GeminiClient) PollVideoOperation(ctx context.Context, name string) (*VideoOperation, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	endpoint := c.baseURL + "/" + strings.TrimPrefix(name, "/") + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai poll: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := geminiAPIError{}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("genai: %s (%d)", apiErr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("genai: unexpected status %d", resp.StatusCode)
	}
	op := veoOperation{}
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, err
	}
	return op.toVideoOperation(), nil
}

// DownloadVideo fetches the finished video's bytes from the file URI the
// operation reported.
func (c *GeminiClient) DownloadVideo(ctx context.Context, uri string) (*Blob, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+url.QueryEscape(c.apiKey), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("genai: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = "video/mp4"
	}
	return &Blob{MimeType: mime, Data: data}, nil
}
