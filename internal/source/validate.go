package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxRank           = 10
)

var strict = bluemonday.StrictPolicy()

// ValidationError names the record and field that made an upstream record
// unusable.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Reason)
}

// ValidateRecord checks one element of the upstream array and returns it as
// a trend. Category and platform are not checked; callers overwrite them.
func ValidateRecord(index int, raw json.RawMessage) (trends.TrendResult, error) {
	invalid := func(field, reason string) (trends.TrendResult, error) {
		return trends.TrendResult{}, &ValidationError{Index: index, Field: field, Reason: reason}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return invalid("record", "not an object")
	}

	title, ok := fields["title"].(string)
	if !ok {
		return invalid("title", "missing or not a string")
	}
	title = cleanText(title, maxTitleLen)
	if title == "" {
		return invalid("title", "empty")
	}

	description, ok := fields["description"].(string)
	if !ok {
		return invalid("description", "missing or not a string")
	}

	engagement, reason := integral(fields["engagement"])
	if reason != "" {
		return invalid("engagement", reason)
	}
	if engagement < 0 {
		return invalid("engagement", "negative")
	}

	rank, reason := integral(fields["rank"])
	if reason != "" {
		return invalid("rank", reason)
	}
	if rank < 1 || rank > maxRank {
		return invalid("rank", fmt.Sprintf("%d is outside 1..%d", rank, maxRank))
	}

	direction, ok := fields["trendDirection"].(string)
	if !ok {
		return invalid("trendDirection", "missing or not a string")
	}
	dir := trends.Direction(strings.ToLower(strings.TrimSpace(direction)))
	if !dir.Valid() {
		return invalid("trendDirection", fmt.Sprintf("%q is not upward or downward", direction))
	}

	category, _ := fields["category"].(string)
	platform, _ := fields["platform"].(string)

	return trends.TrendResult{
		Title:          title,
		Description:    cleanText(description, maxDescriptionLen),
		Category:       category,
		Platform:       trends.Platform(platform),
		Engagement:     engagement,
		Rank:           int(rank),
		TrendDirection: dir,
	}, nil
}

func integral(v any) (int64, string) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, "missing or not a number"
	}
	if i, err := n.Int64(); err == nil {
		return i, ""
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Sprintf("%s is not an integer", n)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 can't hold.
	if math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Sprintf("%s is out of range", n)
	}
	return int64(f), ""
}

// normalize validates every record, scopes the survivors to category and
// keeps at most MaxTrends of them.
func normalize(records []json.RawMessage, category string) Batch {
	var batch Batch
	for i, raw := range records {
		t, err := ValidateRecord(i, raw)
		if err != nil {
			batch.Skipped = append(batch.Skipped, err.(*ValidationError))
			continue
		}
		if len(batch.Trends) == MaxTrends {
			continue
		}
		t.Category = category
		t.Platform = trends.PlatformTikTok
		batch.Trends = append(batch.Trends, t)
	}
	return batch
}

// cleanText strips markup, collapses whitespace and caps the length in runes.
func cleanText(s string, limit int) string {
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
