package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/hema22923/AgriConnect/internal/domain"
)

var ErrUnavailable = errors.New("assistant unavailable")

// Completer produces a text completion for prompt under the system
// instruction.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const platformFacts = `Use the following information about AgriConnect to answer user queries:
- AgriConnect is a platform for farmers to connect with buyers.
- Farmers can register, manage their profiles, and list products with images and prices.
- Buyers can browse, search, and add products to their cart.
- The platform supports order management and status updates.
- Payments are simulated for secure transactions.
If the query is a simple greeting like "hi" or "hello", respond with a friendly greeting and ask how you can help.`

var chatSystem = template.Must(template.New("chat").Parse(
	`You are a helpful AI Chatbot for the AgriConnect platform.
{{if eq .Role "farmer"}}You are assisting a FARMER. Be encouraging and provide information relevant to selling products, managing their profile, and fulfilling orders.
{{else}}You are assisting a BUYER. Be helpful and provide information relevant to finding products, making purchases, and tracking orders.
{{end}}` + platformFacts))

const suggestSystem = `You are an AI assistant helping farmers automatically respond to common buyer questions about their product listings.
Given the product listing details and the buyer's question, generate a suggested response that is helpful, informative, and encourages the buyer to purchase the product.`

// Assistant answers platform questions and drafts replies for farmers.
// A nil completer makes every call fail with ErrUnavailable.
type Assistant struct {
	completer Completer
}

func New(completer Completer) *Assistant {
	return &Assistant{completer: completer}
}

func (a *Assistant) Chat(ctx context.Context, query string, role domain.Role) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if role != domain.RoleFarmer && role != domain.RoleBuyer {
		return "", fmt.Errorf("%w: userType must be farmer or buyer", domain.ErrInvalidArgument)
	}

	var system strings.Builder
	if err := chatSystem.Execute(&system, struct{ Role domain.Role }{role}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return a.complete(ctx, system.String(), "Query: "+query)
}

func (a *Assistant) SuggestReply(ctx context.Context, listing, question string) (string, error) {
	listing, question = strings.TrimSpace(listing), strings.TrimSpace(question)
	if listing == "" || question == "" {
		return "", fmt.Errorf("%w: productListing and buyerQuestion are required", domain.ErrInvalidArgument)
	}

	prompt := fmt.Sprintf("Product Listing Details: %s\nBuyer Question: %s\nSuggested Response:", listing, question)
	return a.complete(ctx, suggestSystem, prompt)
}

func (a *Assistant) complete(ctx context.Context, system, prompt string) (string, error) {
	if a.completer == nil {
		return "", fmt.Errorf("%w: no model provider configured", ErrUnavailable)
	}
	out, err := a.completer.Complete(ctx, system, prompt)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, nil
}
