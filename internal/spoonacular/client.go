// Package spoonacular is a minimal client for the two Spoonacular API calls
// the recipe orchestrator needs: ingredient-overlap search and bulk detail
// lookup. The client is optional-tolerant: a Client constructed without an
// API key reports itself unconfigured and the orchestrator skips the grounded
// path entirely.
package spoonacular

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearchResult is one candidate from the findByIngredients search.
type SearchResult struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	UsedIngredientCount  int    `json:"usedIngredientCount"`
	MissedIngredientCount int   `json:"missedIngredientCount"`
}

// ExtendedIngredient is one ingredient line of a full recipe detail.
type ExtendedIngredient struct {
	Original string  `json:"original"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// InstructionStep is one numbered step of an analyzed instruction block.
type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// AnalyzedInstruction groups the ordered steps of a recipe.
type AnalyzedInstruction struct {
	Steps []InstructionStep `json:"steps"`
}

// RecipeDetail is the full recipe shape from informationBulk.
type RecipeDetail struct {
	ID                   int64                 `json:"id"`
	Title                string                `json:"title"`
	SourceURL            string                `json:"sourceUrl"`
	ReadyInMinutes       int                   `json:"readyInMinutes"`
	Servings             int                   `json:"servings"`
	ExtendedIngredients  []ExtendedIngredient  `json:"extendedIngredients"`
	AnalyzedInstructions []AnalyzedInstruction `json:"analyzedInstructions"`
	Summary              string                `json:"summary"`
}

// Client calls the Spoonacular REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New constructs a Client. An empty apiKey yields an unconfigured client.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.spoonacular.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// SearchByIngredients finds up to count candidate recipes ranked by overlap
// with the given ingredients (ranking=1 maximizes used ingredients; pantry
// staples are ignored on the remote side).
func (c *Client) SearchByIngredients(ctx context.Context, ingredients []string, count int) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("ingredients", strings.Join(ingredients, ","))
	q.Set("number", strconv.Itoa(count))
	q.Set("ranking", "1")
	q.Set("ignorePantry", "true")
	q.Set("apiKey", c.apiKey)

	var out []SearchResult
	if err := c.getJSON(ctx, "/recipes/findByIngredients", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecipeDetails fetches full details for the given recipe ids in one call.
func (c *Client) GetRecipeDetails(ctx context.Context, ids []int64) ([]RecipeDetail, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	q.Set("apiKey", c.apiKey)

	var out []RecipeDetail
	if err := c.getJSON(ctx, "/recipes/informationBulk", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("spoonacular: %s: %s", path, msg)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
