package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// Archiver uploads each cycle's delivered trades to object storage as one
// JSON-lines file. Objects are keyed by UTC day so a bucket listing reads
// like a calendar: <prefix>/<yyyy>/<mm>/<dd>/cycle-<id>.jsonl.
type Archiver struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewArchiver creates an Archiver writing into the client's bucket under the
// given key prefix.
func NewArchiver(c *Client, prefix string) *Archiver {
	return &Archiver{
		uploader: manager.NewUploader(c.S3()),
		bucket:   c.Bucket(),
		prefix:   strings.Trim(prefix, "/"),
	}
}

// archivedTrade is the JSONL row schema. Pointers keep absent numerics out
// of the output instead of writing zeros.
type archivedTrade struct {
	CycleID     string   `json:"cycle_id"`
	Address     string   `json:"address"`
	DedupKey    string   `json:"dedup_key"`
	Timestamp   int64    `json:"timestamp"`
	Title       string   `json:"title,omitempty"`
	Side        string   `json:"side,omitempty"`
	Size        *float64 `json:"size,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	TradeID     string   `json:"trade_id,omitempty"`
	MarketSlug  string   `json:"market_slug,omitempty"`
	EventSlug   string   `json:"event_slug,omitempty"`
	ConditionID string   `json:"condition_id,omitempty"`
}

// ArchiveCycle serializes the cycle's trades to JSONL and uploads the file.
// It returns the object key, or an empty key when there was nothing to
// archive.
func (a *Archiver) ArchiveCycle(ctx context.Context, cycleID string, at time.Time, groups []domain.AddressTrades) (string, error) {
	buf, count, err := marshalJSONL(cycleID, groups)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive cycle %s marshal: %w", cycleID, err)
	}
	if count == 0 {
		return "", nil
	}

	key := a.objectKey(cycleID, at)
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive cycle %s upload: %w", cycleID, err)
	}
	return key, nil
}

// marshalJSONL renders one JSON object per trade, newline-terminated.
func marshalJSONL(cycleID string, groups []domain.AddressTrades) ([]byte, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	count := 0
	for _, g := range groups {
		for _, t := range g.Trades {
			row := archivedTrade{
				CycleID:     cycleID,
				Address:     g.Address,
				DedupKey:    t.DedupKey(),
				Timestamp:   t.Timestamp,
				Title:       t.Title,
				Side:        t.Side,
				Size:        t.Size,
				Price:       t.Price,
				Outcome:     t.Outcome,
				TxHash:      t.TxHash,
				TradeID:     t.ID,
				MarketSlug:  t.MarketSlug,
				EventSlug:   t.EventSlug,
				ConditionID: t.ConditionID,
			}
			if err := enc.Encode(row); err != nil {
				return nil, 0, err
			}
			count++
		}
	}
	return buf.Bytes(), count, nil
}

// objectKey builds the calendar-style key for a cycle archived at the given
// time.
func (a *Archiver) objectKey(cycleID string, at time.Time) string {
	at = at.UTC()
	key := fmt.Sprintf("%04d/%02d/%02d/cycle-%s.jsonl", at.Year(), int(at.Month()), at.Day(), cycleID)
	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + key
}
