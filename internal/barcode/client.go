package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
)

const unknownProductName = "Unknown Product"

var _ Resolver = (*Client)(nil)

// Client queries Open Food Facts first and falls back to UPCitemDB.
type Client struct {
	httpClient       *http.Client
	openFoodFactsURL string
	upcItemDBURL     string
	logger           *slog.Logger
}

// NewClient creates a client whose requests are bounded by cfg.Timeout.
func NewClient(cfg config.Barcode, logger *slog.Logger) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		openFoodFactsURL: strings.TrimRight(cfg.OpenFoodFactsURL, "/"),
		upcItemDBURL:     strings.TrimRight(cfg.UPCItemDBURL, "/"),
		logger:           logger.With(slog.String("service", "barcode")),
	}
}

type lookupFunc func(ctx context.Context, barcode string) (Product, error)

func (c *Client) Resolve(ctx context.Context, barcode string) (Product, error) {
	sources := []struct {
		name   string
		lookup lookupFunc
	}{
		{SourceOpenFoodFacts, c.lookupOpenFoodFacts},
		{SourceUPCItemDB, c.lookupUPCItemDB},
	}

	var errs []error
	for _, src := range sources {
		p, err := src.lookup(ctx, barcode)
		switch {
		case err == nil:
			return p, nil
		case errors.Is(err, ErrNotFound):
			continue
		default:
			c.logger.WarnContext(ctx, "barcode source lookup failed",
				slog.String("source", src.name),
				slog.String("barcode", barcode),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
		}
	}

	if len(errs) > 0 {
		return Product{}, errors.Join(errs...)
	}

	return Product{}, ErrNotFound
}

type openFoodFactsResponse struct {
	Status  int `json:"status"`
	Product *struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Categories  string `json:"categories"`
	} `json:"product"`
}

func (c *Client) lookupOpenFoodFacts(ctx context.Context, barcode string) (Product, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.openFoodFactsURL, url.PathEscape(barcode))

	var resp openFoodFactsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return Product{}, err
	}

	if resp.Status != 1 || resp.Product == nil {
		return Product{}, ErrNotFound
	}

	brand, _, _ := strings.Cut(resp.Product.Brands, ",")
	return Product{
		Barcode:  barcode,
		Name:     nameOrUnknown(resp.Product.ProductName),
		Brand:    strings.TrimSpace(brand),
		Category: NormalizeCategory(resp.Product.Categories),
		Source:   SourceOpenFoodFacts,
	}, nil
}

type upcItemDBResponse struct {
	Code  string `json:"code"`
	Items []struct {
		Title    string `json:"title"`
		Brand    string `json:"brand"`
		Category string `json:"category"`
	} `json:"items"`
}

func (c *Client) lookupUPCItemDB(ctx context.Context, barcode string) (Product, error) {
	endpoint := fmt.Sprintf("%s/prod/trial/lookup?%s", c.upcItemDBURL, url.Values{"upc": []string{barcode}}.Encode())

	var resp upcItemDBResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return Product{}, err
	}

	if resp.Code != "OK" || len(resp.Items) == 0 {
		return Product{}, ErrNotFound
	}

	item := resp.Items[0]
	return Product{
		Barcode:  barcode,
		Name:     nameOrUnknown(item.Title),
		Brand:    strings.TrimSpace(item.Brand),
		Category: NormalizeCategory(item.Category),
		Source:   SourceUPCItemDB,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case http.StatusNotFound, http.StatusBadRequest:
		return ErrNotFound
	default:
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}
}

func nameOrUnknown(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return unknownProductName
	}
	return name
}
