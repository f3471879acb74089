// Package receipts extracts transaction data from receipt images with Gemini
// and archives the originals in Cloud Storage.
package receipts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/finledger/finledger/internal/domain"
)

// DefaultModelName is the Gemini model used for receipt extraction.
const DefaultModelName = "gemini-2.0-flash"

const scanPrompt = "You are a receipt scanner for a personal finance app.\n\n" +
	"Task:\n" +
	"- Analyze the attached receipt image.\n" +
	"- Output STRICT JSON only (no comments, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"amount\": number (total amount paid, positive)\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"description\": string (brief summary of the purchase)\n" +
	"- \"merchant_name\": string\n" +
	"- \"category\": string (one of: housing, transportation, groceries, utilities, " +
	"entertainment, food, shopping, healthcare, education, personal, travel, insurance, " +
	"gifts, bills, other-expense)\n\n" +
	"If the image is not a receipt, return an empty JSON object {}.\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n"

// ScannedReceipt is the structured result of scanning one receipt image.
type ScannedReceipt struct {
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchant_name"`
	Category     string          `json:"category"`
}

// Scanner extracts receipt fields from images via the Gemini API.
type Scanner struct {
	model string
	log   zerolog.Logger
}

// NewScanner creates a receipt scanner. An empty model uses DefaultModelName.
func NewScanner(model string, log zerolog.Logger) *Scanner {
	if model == "" {
		model = DefaultModelName
	}
	return &Scanner{model: model, log: log}
}

// Scan sends the image to the model and decodes its JSON answer. A non-receipt
// image comes back as ErrValidation.
func (s *Scanner) Scan(ctx context.Context, imageBytes []byte, mimeType string) (*ScannedReceipt, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %v", domain.ErrUpstream, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     imageBytes,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", domain.ErrUpstream, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty response from model", domain.ErrUpstream)
	}

	receipt, err := decodeReceipt(cleanModelJSON(rawText))
	if err != nil {
		s.log.Debug().Str("raw", rawText).Msg("Unusable model response")
		return nil, err
	}

	s.log.Info().
		Str("merchant", receipt.MerchantName).
		Str("amount", receipt.Amount.String()).
		Msg("Receipt scanned")
	return receipt, nil
}

// decodeReceipt parses the model's JSON object into a ScannedReceipt.
func decodeReceipt(clean string) (*ScannedReceipt, error) {
	var raw struct {
		Amount       json.Number `json:"amount"`
		Date         string      `json:"date"`
		Description  string      `json:"description"`
		MerchantName string      `json:"merchant_name"`
		Category     string      `json:"category"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshal receipt JSON: %v", domain.ErrUpstream, err)
	}
	if raw.Amount == "" && raw.Date == "" {
		return nil, fmt.Errorf("%w: image does not look like a receipt", domain.ErrValidation)
	}

	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: receipt amount %q: %v", domain.ErrUpstream, raw.Amount, err)
	}

	date, err := time.Parse("2006-01-02", raw.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt date %q: %v", domain.ErrUpstream, raw.Date, err)
	}

	return &ScannedReceipt{
		Amount:       amount,
		Date:         date,
		Description:  raw.Description,
		MerchantName: raw.MerchantName,
		Category:     raw.Category,
	}, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes adds despite instructions, keeping only the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
