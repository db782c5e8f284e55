package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds extraction client settings
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Extractor reads structured fields out of document text. When no API key
// is configured it falls back to the deterministic offline extractor so
// the rest of the pipeline still works.
type Extractor struct {
	client  *openai.Client
	model   string
	temp    float32
	timeout time.Duration
	logger  *zap.Logger
}

// NewExtractor creates an extractor. A nil client (empty API key) enables
// offline mode.
func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Extractor{
		client:  client,
		model:   model,
		temp:    cfg.Temperature,
		timeout: timeout,
		logger:  logger,
	}
}

// Extract pulls document fields from text. typeOverride pins the document
// type instead of letting extraction decide; hints carry learned
// correction patterns for this vendor.
func (e *Extractor) Extract(ctx context.Context, fileName, text, typeOverride string, hints []string) (Result, error) {
	if e.client == nil {
		res := offlineExtract(fileName, text, typeOverride)
		e.logger.Debug("Offline extraction", zap.String("file", fileName), zap.String("type", res.DocumentType))
		return res, nil
	}

	prompt := buildPrompt(text, typeOverride, hints)

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temp,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a meticulous accounts payable document parser. Respond with ONLY a valid JSON object, no markdown and no explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("no response from extraction model")
	}

	content := resp.Choices[0].Message.Content
	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		// Some models wrap JSON in code fences despite instructions
		stripped := stripCodeFence(content)
		if err2 := json.Unmarshal([]byte(stripped), &res); err2 != nil {
			e.logger.Error("Failed to parse extraction response",
				zap.Error(err),
				zap.String("content", content))
			return Result{}, fmt.Errorf("failed to parse extraction response: %w", err)
		}
	}

	if typeOverride != "" {
		res.DocumentType = typeOverride
	}
	res.Source = "openai"
	return res, nil
}

func buildPrompt(text, typeOverride string, hints []string) string {
	var b strings.Builder
	b.WriteString("Extract the fields below from this business document.\n\n")

	if typeOverride != "" {
		fmt.Fprintf(&b, "The document type is known to be %q; do not reclassify it.\n\n", typeOverride)
	} else {
		b.WriteString("Classify document_type as one of: invoice, purchase_order, contract, credit_note, debit_note, goods_receipt.\n\n")
	}

	if len(hints) > 0 {
		b.WriteString("Past extraction mistakes for this vendor, corrected by humans:\n")
		for _, h := range hints {
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("Avoid repeating these mistakes.\n\n")
	}

	b.WriteString(`Respond with a JSON object of this exact shape (omit fields that do not apply, use YYYY-MM-DD for dates):
{
  "document_type": string,
  "vendor_name": string,
  "document_number": string,
  "total_amount": number,
  "subtotal": number,
  "currency": string,
  "issue_date": string,
  "due_date": string,
  "delivery_date": string,
  "received_date": string,
  "received_by": string,
  "po_reference": string,
  "original_invoice_ref": string,
  "payment_terms": string,
  "notes": string,
  "line_items": [{"description": string, "quantity": number, "unitPrice": number, "total": number}],
  "tax_details": [{"type": string, "rate": number, "amount": number}],
  "pricing_terms": [{"item": string, "rate": number, "unit": string}],
  "contract_terms": {"payment_terms": string, "expiry_date": string, "liability_cap": number},
  "parties": [string],
  "early_payment_discount": {"discount_percent": number, "days": number},
  "_confidence": number between 0 and 100
}

Document text:
`)
	b.WriteString(text)
	return b.String()
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return trimmed
}
