package es

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/elastic/go-elasticsearch/v9"
)

// NewClient connects to Elasticsearch and checks the cluster answers.
// transport may be nil.
func NewClient(cfg config.Elastic, transport http.RoundTripper) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("es: info: %s: %s", res.Status(), body)
	}
	return client, nil
}
