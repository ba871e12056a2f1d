package capname

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
	"k8s.io/klog/v2"
)

// DefaultPrompt asks for a short caption in the style of an image-captioning model.
var DefaultPrompt = "Write a short caption for this image in lowercase, in at most ten words, " +
	"starting with an article such as \"a\" or \"an\". Reply with the caption only, without punctuation."

// Captioner generates a text description of an image.
type Captioner interface {
	Caption(ctx context.Context, p *Prepared) (string, error)
}

// CaptionerFunc adapts a function to the Captioner interface.
type CaptionerFunc func(ctx context.Context, p *Prepared) (string, error)

// Caption calls f.
func (f CaptionerFunc) Caption(ctx context.Context, p *Prepared) (string, error) {
	return f(ctx, p)
}

// BackendOpts configures a caption model backend.
type BackendOpts struct {
	Backend string
	Model   string
	Prompt  string
}

var defaultModels = map[string]string{
	"ollama": "llava",
	"gemini": "gemini-2.5-flash",
}

// NewCaptioner connects to the configured backend, failing if the model is unreachable.
func NewCaptioner(ctx context.Context, o BackendOpts) (Captioner, error) {
	if o.Model == "" {
		o.Model = defaultModels[o.Backend]
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}

	klog.Infof("loading %s model %q", o.Backend, o.Model)
	switch o.Backend {
	case "ollama":
		return NewOllama(ctx, o.Model, o.Prompt)
	case "gemini":
		return NewGemini(ctx, os.Getenv("GOOGLE_AI_API_KEY"), o.Model, o.Prompt)
	default:
		return nil, fmt.Errorf("unknown backend %q", o.Backend)
	}
}

// cleanCaption trims model output down to a single line.
func cleanCaption(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Gemini captions images using the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
}

// NewGemini returns a Gemini captioner, failing if the model does not exist.
func NewGemini(ctx context.Context, apiKey string, model string, prompt string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_AI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}

	if _, err := client.Models.Get(ctx, model, nil); err != nil {
		return nil, fmt.Errorf("gemini model %q: %w", model, err)
	}

	return &Gemini{client: client, model: model, prompt: prompt}, nil
}

// Caption implements Captioner.
func (g *Gemini) Caption(ctx context.Context, p *Prepared) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(p.Data, p.MimeType),
		genai.NewPartFromText(g.prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	caption := cleanCaption(resp.Text())
	if caption == "" {
		return "", fmt.Errorf("empty caption for %s", p.Name)
	}
	return caption, nil
}

// Ollama captions images using a local Ollama vision model.
type Ollama struct {
	client *api.Client
	model  string
	prompt string
}

// NewOllama returns an Ollama captioner using OLLAMA_HOST, or the default local endpoint.
// The model must already be pulled.
func NewOllama(ctx context.Context, model string, prompt string) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}

	if err := client.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("ollama heartbeat: %w", err)
	}

	if _, err := client.Show(ctx, &api.ShowRequest{Model: model}); err != nil {
		return nil, fmt.Errorf("ollama model %q: %w", model, err)
	}

	return &Ollama{client: client, model: model, prompt: prompt}, nil
}

// Caption implements Captioner.
func (o *Ollama) Caption(ctx context.Context, p *Prepared) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: o.prompt,
				Images:  []api.ImageData{p.Data},
			},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0,
			"seed":        1,
			"num_predict": 40,
		},
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	caption := cleanCaption(sb.String())
	if caption == "" {
		return "", fmt.Errorf("empty caption for %s", p.Name)
	}
	return caption, nil
}
