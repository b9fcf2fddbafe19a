// Package llm wraps the OpenAI-compatible chat endpoint used for
// invoice field extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse indicates the model returned no usable content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Config holds the connection settings for the extraction model.
type Config struct {
	// Endpoint is the base URL, e.g. "https://api.openai.com/v1".
	Endpoint string
	// Model is the chat model name.
	Model string
	// APIKey may be empty for local endpoints.
	APIKey string
	// Temperature for extraction calls. Kept near zero so repeated runs
	// over the same document agree.
	Temperature float32
}

// Client calls an OpenAI-compatible endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// NewClient validates cfg and builds the client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("llm: endpoint is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	return &Client{
		api:         openai.NewClientWithConfig(cc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// ExtractInvoiceFields sends the document's full text through the
// fixed-schema extraction prompt and returns the cleaned JSON payload.
// The caller decodes it through the extract package.
func (c *Client) ExtractInvoiceFields(ctx context.Context, documentText string) ([]byte, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExtractionPrompt(documentText)},
		},
	})
	if err != nil {
		log.Error().Err(err).
			Dur("elapsed", time.Since(start)).
			Str("model", c.model).
			Msg("llm extraction request failed")
		return nil, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm extraction completed")

	cleaned, err := ExtractJSON(content)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return []byte(cleaned), nil
}

const extractionSystemPrompt = `Eres un experto en facturas de proveedores de hostelería en España. ` +
	`Lees el texto OCR de una factura y devuelves exclusivamente JSON válido, sin markdown ni comentarios.`

func buildExtractionPrompt(documentText string) string {
	return fmt.Sprintf(`Extrae los campos de esta factura. Para cada campo indica valor, confianza (0 a 1) y texto_fuente (fragmento literal del documento). Usa null cuando un campo no aparezca.

ATENCIÓN: la factura muestra los datos de DOS empresas. El proveedor es quien EMITE la factura (vende), no el restaurante que la recibe. No confundas sus CIF.

Devuelve SOLO este JSON:
{
  "factura": {
    "proveedor_nombre": {"valor": "...", "confianza": 0.0, "texto_fuente": "..."},
    "proveedor_cif": {"valor": "...", "confianza": 0.0, "texto_fuente": "..."},
    "numero_factura": {"valor": "...", "confianza": 0.0, "texto_fuente": "..."},
    "fecha_emision": {"valor": "DD/MM/AAAA", "confianza": 0.0, "texto_fuente": "..."},
    "fecha_vencimiento": {"valor": "DD/MM/AAAA", "confianza": 0.0, "texto_fuente": "..."},
    "base_imponible": {"valor": 0.0, "confianza": 0.0, "texto_fuente": "..."},
    "cuota_iva": {"valor": 0.0, "confianza": 0.0, "texto_fuente": "..."},
    "tipo_iva": {"valor": 0.0, "confianza": 0.0, "texto_fuente": "..."},
    "total": {"valor": 0.0, "confianza": 0.0, "texto_fuente": "..."}
  },
  "productos": [
    {"descripcion_original": "...", "cantidad": 0.0, "unidad": "...", "precio_unitario_sin_iva": 0.0, "precio_total_linea_sin_iva": 0.0, "codigo_producto": "...", "tipo_iva": 0.0, "confianza_linea": 0.0, "texto_fuente": "..."}
  ]
}

TEXTO DE LA FACTURA:
%s`, documentText)
}
