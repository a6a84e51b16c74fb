// Package catalog loads the set of selectable backend models, with a
// static fallback so the client stays usable when the catalog service
// is unreachable.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Descriptor is the metadata for one selectable model. Immutable once
// loaded.
type Descriptor struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Platform    string   `json:"platform"`
	Capability  string   `json:"capability"`
	BestFor     []string `json:"best_for"`
}

// fallbackModels keeps the selector usable without the catalog service.
// One entry per platform the backend routes to.
var fallbackModels = []Descriptor{
	{
		Name:        "gpt-4o-mini",
		DisplayName: "GPT-4o Mini",
		Description: "Fast and cost-effective model for everyday tasks",
		Platform:    "openai",
		Capability:  "fast",
		BestFor:     []string{"Chat responses", "Formatting results", "Quick queries"},
	},
	{
		Name:        "llama-3.1-8b-instant",
		DisplayName: "Llama 3.1 8B",
		Description: "Fast and efficient open-source model",
		Platform:    "groq",
		Capability:  "fast",
		BestFor:     []string{"Quick responses", "Simple queries", "Fallback option"},
	},
}

// Catalog is the loaded model list. Loaded once per session.
type Catalog struct {
	models   []Descriptor
	fallback bool
}

type catalogResponse struct {
	Models []Descriptor `json:"models"`
}

// Load fetches the model list from the backend. A fetch or decode
// failure yields the fallback catalog, never an error: catalog trouble
// must stay invisible to the user.
func Load(ctx context.Context, baseURL string, logger *slog.Logger) *Catalog {
	models, err := fetch(ctx, baseURL)
	if err != nil {
		logger.Warn("model catalog unavailable, using fallback list", "error", err)
		return &Catalog{models: fallbackModels, fallback: true}
	}
	logger.Info("model catalog loaded", "models", len(models))
	return &Catalog{models: models}
}

func fetch(ctx context.Context, baseURL string) ([]Descriptor, error) {
	url := strings.TrimSuffix(baseURL, "/") + "/api/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded catalogResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(decoded.Models) == 0 {
		return nil, fmt.Errorf("catalog returned no models")
	}
	return decoded.Models, nil
}

// Models returns the descriptors in catalog order.
func (c *Catalog) Models() []Descriptor {
	out := make([]Descriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Has reports whether a model id is in the catalog.
func (c *Catalog) Has(id string) bool {
	for _, m := range c.models {
		if m.Name == id {
			return true
		}
	}
	return false
}

// Fallback reports whether this catalog is the static fallback list.
func (c *Catalog) Fallback() bool {
	return c.fallback
}
