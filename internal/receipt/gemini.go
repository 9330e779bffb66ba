package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractionPrompt = `Read this receipt and return a single JSON object with these keys:
amount, category, subcategory, vendor, account, desc1, desc2, desc3, invoice_date, type.

- amount: the total paid as a number.
- category and subcategory: a short spending category and a more specific one.
- vendor: the merchant name.
- account: the card or account number printed on the receipt.
- desc1: a short description of the purchase; desc2 and desc3: optional extra details.
- invoice_date: the receipt date as YYYY-MM-DD.
- type: "debit" for a purchase or payment, "credit" for a refund or income.

Use the string "Unknown" for any value you cannot read.
Respond with raw JSON only. Do NOT use Markdown.`

// generator is the part of genai.GenerativeModel used here.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor reads receipts with a Gemini model. It returns the same
// fields as the backend extraction route.
type GeminiExtractor struct {
	client *genai.Client
	model  generator
	logger logging.Logger
}

// NewGeminiExtractor creates an extractor using apiKey and the named model.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiExtractor{client: client, model: model, logger: logging.OrDefault(logger)}, nil
}

// Close releases the Gemini client.
func (g *GeminiExtractor) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Extract sends the image to the model and decodes its JSON answer. The
// session is not used.
func (g *GeminiExtractor) Extract(ctx context.Context, _ models.Session, file models.ReceiptFile) (models.ReceiptExtraction, error) {
	mimeType := file.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	resp, err := g.model.GenerateContent(ctx,
		genai.Text(extractionPrompt),
		genai.Blob{MIMEType: mimeType, Data: file.Data},
	)
	if err != nil {
		return models.ReceiptExtraction{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return models.ReceiptExtraction{}, fmt.Errorf("no response from Gemini")
	}

	var out models.ReceiptExtraction
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &out); err != nil {
		g.logger.Debug("Unparseable Gemini answer", logging.F("response", text))
		return models.ReceiptExtraction{}, fmt.Errorf("failed to decode Gemini answer: %w", err)
	}
	g.logger.Debug("Receipt read by Gemini", logging.F(logging.FieldFile, file.Name))
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
