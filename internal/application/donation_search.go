package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/annadaan/annadaan-backend/internal/domain/entity"
)

// indexDonation mirrors a donation into Elasticsearch for keyword search.
// Indexing is best-effort: search lags rather than lifecycle calls failing.
func (s *DonationService) indexDonation(ctx context.Context, d *entity.Donation) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	names := make([]string, 0, len(d.FoodItems))
	for _, it := range d.FoodItems {
		names = append(names, it.Name)
	}
	doc := map[string]any{
		"id":         d.ID,
		"donor_id":   d.DonorID,
		"food_items": strings.Join(names, " "),
		"serves":     d.Serves,
		"status":     d.Status,
		"pickup_by":  d.PickupBy.Format(time.RFC3339Nano),
		"location":   map[string]float64{"lon": d.Location.Longitude, "lat": d.Location.Latitude},
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: d.ID, Body: strings.NewReader(string(b)), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("donation_id", d.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("donation_id", d.ID).Warn("es index response error")
	}
}

// SearchDonations matches donations by food item keywords.
func (s *DonationService) SearchDonations(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"food_items": q,
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
