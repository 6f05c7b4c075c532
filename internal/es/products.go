package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/shopspring/decimal"
)

type ProductDoc struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *uint           `json:"category_id,omitempty"`
}

const productMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "name":        {"type": "text"},
      "description": {"type": "text"},
      "price":       {"type": "scaled_float", "scaling_factor": 100},
      "stock":       {"type": "integer"},
      "category_id": {"type": "long"}
    }
  }
}`

type ProductIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewProductIndex(client *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{client: client, index: index}
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("es: %s: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.client.Indices.Exists([]string{p.index}, p.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = p.client.Indices.Create(p.index,
		p.client.Indices.Create.WithContext(ctx),
		p.client.Indices.Create.WithBody(bytes.NewReader([]byte(productMapping))),
	)
	if err != nil {
		return fmt.Errorf("es: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func (p *ProductIndex) IndexProduct(ctx context.Context, doc ProductDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("es: marshal product: %w", err)
	}
	res, err := p.client.Index(p.index, bytes.NewReader(body),
		p.client.Index.WithContext(ctx),
		p.client.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("es: index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product", res)
	}
	return nil
}

// DeleteProduct treats a missing document as already deleted.
func (p *ProductIndex) DeleteProduct(ctx context.Context, id uint) error {
	res, err := p.client.Delete(p.index, strconv.FormatUint(uint64(id), 10),
		p.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es: delete product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete product", res)
	}
	return nil
}

// Search runs a fuzzy multi_match over name and description and returns
// the matching product ids in score order.
func (p *ProductIndex) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source struct {
					ID uint `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return r.Hits.Total.Value, ids, nil
}
