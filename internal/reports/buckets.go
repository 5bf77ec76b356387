package reports

import (
	"time"

	"github.com/sokleng/ics-backend/internal/stock"
)

// Period selects the granularity of a movement report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Bucket sums in- and out-quantities for one calendar slot.
type Bucket struct {
	Key string `json:"key"`
	In  int    `json:"in"`
	Out int    `json:"out"`
}

// BucketMovements groups a movement feed by calendar day, week or month.
// Weekly keys are the date of the week's Sunday. Buckets appear in the order
// their first movement appears in the feed.
func BucketMovements(movements []stock.Movement, period Period) []Bucket {
	var order []string
	byKey := make(map[string]*Bucket)

	for _, m := range movements {
		key := bucketKey(m.Date, period)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key}
			byKey[key] = b
			order = append(order, key)
		}
		if m.Type == "in" {
			b.In += m.Quantity
		} else {
			b.Out += m.Quantity
		}
	}

	buckets := make([]Bucket, 0, len(order))
	for _, k := range order {
		buckets = append(buckets, *byKey[k])
	}
	return buckets
}

func bucketKey(t time.Time, period Period) string {
	switch period {
	case PeriodWeekly:
		sunday := t.AddDate(0, 0, -int(t.Weekday()))
		return sunday.Format("2006-01-02")
	case PeriodMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
