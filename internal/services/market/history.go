package market

import (
	"context"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
)

const Measurement = "market_price"

// PointWriter is satisfied by influxdb2 api.WriteAPIBlocking.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// History writes fetched market tables to InfluxDB and remembers the last
// write failure for the readiness probe. Write errors are logged, never returned.
type History struct {
	w   PointWriter
	log *zap.Logger
	now func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	written int64
}

func NewHistory(w PointWriter, log *zap.Logger) *History {
	log = logging.OrNop(log)
	return &History{
		w:       w,
		log:     log,
		now:     time.Now,
		lastErr: time.Now().Add(-24 * time.Hour),
	}
}

// Record converts rows with a parseable price into points and writes them in one batch.
func (h *History) Record(ctx context.Context, district string, rows []model.MarketRow) {
	if h == nil || h.w == nil {
		return
	}
	pts := Points(district, rows, h.now())
	if len(pts) == 0 {
		return
	}
	if err := h.w.WritePoint(ctx, pts...); err != nil {
		h.mu.Lock()
		h.lastErr = h.now()
		h.mu.Unlock()
		h.log.Warn("market history write failed",
			zap.String("district", district), zap.Int("points", len(pts)), zap.Error(err))
		return
	}
	h.mu.Lock()
	h.written += int64(len(pts))
	h.mu.Unlock()
}

// LastErrorAge is the time since the last failed write.
func (h *History) LastErrorAge() time.Duration {
	if h == nil {
		return 99999 * time.Hour
	}
	h.mu.RLock()
	t := h.lastErr
	h.mu.RUnlock()
	return h.now().Sub(t)
}

// Written counts points stored since start.
func (h *History) Written() int64 {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.written
}

// Points builds one market_price point per row. Rows without a numeric price are
// skipped; the row date is used as timestamp when it parses as YYYY-MM-DD or DD/MM/YYYY.
func Points(district string, rows []model.MarketRow, now time.Time) []*write.Point {
	district = strings.ToLower(strings.TrimSpace(district))
	pts := make([]*write.Point, 0, len(rows))
	for _, r := range rows {
		price, ok := r.PriceValue()
		if !ok {
			continue
		}
		tags := map[string]string{}
		if r.Mandi != "" {
			tags["mandi"] = r.Mandi
		}
		if r.Commodity != "" {
			tags["commodity"] = r.Commodity
		}
		if district != "" {
			tags["district"] = district
		}
		fields := map[string]interface{}{"price": price}
		pts = append(pts, influxdb2.NewPoint(Measurement, tags, fields, rowTime(r.Date, now)))
	}
	return pts
}

func rowTime(date string, now time.Time) time.Time {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(date)); err == nil {
			return t
		}
	}
	return now
}
