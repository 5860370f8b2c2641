package inbound

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultRetentionDays is the retention window used when none is configured.
const DefaultRetentionDays = 30

// Retention is a validated retention window. Never means records are kept forever.
type Retention struct {
	Days  int
	Never bool
}

/* ParseRetention validates a raw retention window as read from configuration
 * nil means "never prune"; integers and integer strings (env vars) are accepted;
 * anything else, including zero and negative values, is a configuration error.
 * It is called when the sweep runs, not when configuration is loaded.
 */
func ParseRetention(raw any) (Retention, error) {
	var days int64
	switch v := raw.(type) {
	case nil:
		return Retention{Never: true}, nil
	case int:
		days = int64(v)
	case int8:
		days = int64(v)
	case int16:
		days = int64(v)
	case int32:
		days = int64(v)
	case int64:
		days = v
	case uint:
		days = int64(v)
	case uint8:
		days = int64(v)
	case uint16:
		days = int64(v)
	case uint32:
		days = int64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "null") {
			return Retention{Never: true}, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Retention{}, invalidRetention(raw)
		}
		days = n
	default:
		return Retention{}, invalidRetention(raw)
	}

	if days <= 0 {
		return Retention{}, invalidRetention(raw)
	}
	return Retention{Days: int(days)}, nil
}

// Cutoff returns the instant before which records are prunable
func (r Retention) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.Days)
}

// Prunable selects the records of p older than the retention window
func Prunable(ctx context.Context, p Pruner, retentionDays any, now time.Time) ([]string, error) {
	retention, err := ParseRetention(retentionDays)
	if err != nil {
		return nil, err
	}
	if retention.Never {
		return nil, nil
	}

	ids, err := p.CreatedBefore(ctx, retention.Cutoff(now))
	if err != nil {
		return nil, fmt.Errorf("selecting prunable records: %w", err)
	}
	return ids, nil
}

// Sweep deletes the prunable records of p and returns how many were removed
func Sweep(ctx context.Context, p Pruner, retentionDays any, now time.Time) (int64, error) {
	ids, err := Prunable(ctx, p, retentionDays, now)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := p.Delete(ctx, ids)
	if err != nil {
		return deleted, fmt.Errorf("deleting prunable records: %w", err)
	}
	return deleted, nil
}

func invalidRetention(raw any) *ConfigurationError {
	return &ConfigurationError{Key: KeyRetentionDays, Value: fmt.Sprintf("%v", raw), Err: ErrInvalidRetention}
}
