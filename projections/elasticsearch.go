package projections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"

	"example.com/auctionhouse/services/indexer/config"
	"example.com/auctionhouse/services/indexer/models"
)

// Index names
const (
	AuctionsIndex      = "auctions"
	AuctionEventsIndex = "auction-events"
)

// NewElasticsearchClient creates a new Elasticsearch client.
func NewElasticsearchClient(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
}

// SearchIndexer mirrors auctions and raw events into Elasticsearch for the
// dashboards. It is a read-side convenience, not part of the durable state.
type SearchIndexer struct {
	client *elasticsearch.Client
	prefix string
}

// NewSearchIndexer creates a new search indexer.
func NewSearchIndexer(client *elasticsearch.Client, cfg config.ElasticConfig) *SearchIndexer {
	return &SearchIndexer{client: client, prefix: cfg.Prefix}
}

// FormatIndex adds the configured prefix to an index name.
func (s *SearchIndexer) FormatIndex(index string) string {
	return s.prefix + "-" + index
}

func (s *SearchIndexer) index(ctx context.Context, index, docID string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := s.client.Index(
		s.FormatIndex(index),
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(docID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document in Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index document in Elasticsearch: %s", res.String())
	}
	return nil
}

// IndexEvent mirrors one raw event record.
func (s *SearchIndexer) IndexEvent(ctx context.Context, record models.EventRecord) error {
	return s.index(ctx, AuctionEventsIndex, record.EventID, record)
}

// IndexAuction mirrors one auction document.
func (s *SearchIndexer) IndexAuction(ctx context.Context, auction *models.Auction) error {
	return s.index(ctx, AuctionsIndex, auction.Lot, auction)
}
