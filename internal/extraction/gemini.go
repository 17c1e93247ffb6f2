package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// modelCallTimeout bounds every model invocation. One submission can make
// two sequential calls, so a hung call must not pin the request forever.
const modelCallTimeout = 30 * time.Second

// Gemini implements the Extractor interface using Google Gemini.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini Extractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash-lite"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{client: client, modelName: modelName}, nil
}

// ExtractReceipt extracts the full set of receipt fields from a photo.
func (g *Gemini) ExtractReceipt(ctx context.Context, image ImageInput) (*ReceiptFields, error) {
	text, err := g.generate(ctx, image, receiptPrompt, receiptSchema)
	if err != nil {
		return nil, err
	}
	return parseReceiptJSON(text)
}

// ExtractOdometer extracts only an odometer reading, with the instruction
// text chosen by where the reading appears.
func (g *Gemini) ExtractOdometer(ctx context.Context, image ImageInput, imageContext ImageContext) (*OdometerFields, error) {
	text, err := g.generate(ctx, image, odometerPromptFor(imageContext), odometerSchema)
	if err != nil {
		return nil, err
	}
	return parseOdometerJSON(text)
}

// generate sends one image plus an instruction to the model, constraining
// the response to JSON conforming to schema, and returns the raw text.
// Single attempt, no retries.
func (g *Gemini) generate(ctx context.Context, image ImageInput, prompt string, schema *genai.Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, modelCallTimeout)
	defer cancel()

	pngData, err := image.png()
	if err != nil {
		return "", &Error{Kind: ErrKindUpstream, Err: err}
	}

	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(prompt),
	)
	if err != nil {
		return "", &Error{Kind: ErrKindUpstream, Err: fmt.Errorf("generating content: %w", err)}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: ErrKindUpstream, Err: errors.New("no response from gemini")}
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
