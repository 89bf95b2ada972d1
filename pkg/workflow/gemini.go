package workflow

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
)

// geminiTextGenerator は gemini.GenerativeModel を assistant.TextGenerator に適合させます。
type geminiTextGenerator struct {
	client gemini.GenerativeModel
}

func (g *geminiTextGenerator) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.client.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
