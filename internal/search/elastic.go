package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shops_api/internal/models"
)

type ESConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Elastic struct {
	ES    *elasticsearch.Client
	Index string
}

type productDoc struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	ShopID uint    `json:"shop_id"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":      {"type": "long"},
      "name":    {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "price":   {"type": "double"},
      "shop_id": {"type": "long"}
    }
  }
}`

func NewClient(cfg ESConfig, log *slog.Logger) (*elasticsearch.Client, error) {
	log.Info("es_connecting", "url", cfg.URL)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
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

	log.Info("es_connected")
	return client, nil
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{ES: client, Index: index}
}

// EnsureIndex creates the products index with its mapping if it does not exist yet.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.ES.Indices.Exists([]string{e.Index}, e.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.ES.Indices.Create(e.Index,
		e.ES.Indices.Create.WithContext(ctx),
		e.ES.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("es: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readAll(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("es: create index: %s", res.Status())
	}
	return nil
}

func (e *Elastic) IndexProduct(ctx context.Context, p *models.Product) error {
	body, err := json.Marshal(productDoc{ID: p.ID, Name: p.Name, Price: p.Price, ShopID: p.ShopID})
	if err != nil {
		return fmt.Errorf("es: encode product: %w", err)
	}

	res, err := e.ES.Index(e.Index, bytes.NewReader(body),
		e.ES.Index.WithContext(ctx),
		e.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("es: index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("es: index product: %s", res.Status())
	}
	return nil
}

// DeleteProduct treats a missing document as already deleted.
func (e *Elastic) DeleteProduct(ctx context.Context, id uint) error {
	res, err := e.ES.Delete(e.Index, strconv.FormatUint(uint64(id), 10), e.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es: delete product: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "name.keyword"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := e.ES.Search(
		e.ES.Search.WithContext(ctx),
		e.ES.Search.WithIndex(e.Index),
		e.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("es: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = models.Product{ID: hit.Source.ID, Name: hit.Source.Name, Price: hit.Source.Price, ShopID: hit.Source.ShopID}
	}
	return r.Hits.Total.Value, prods, nil
}

func readAll(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
