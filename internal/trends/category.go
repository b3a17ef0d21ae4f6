package trends

import "strings"

// Platform is where a trend was observed. Only TikTok is tracked.
type Platform string

const PlatformTikTok Platform = "TikTok"

// Direction is whether a trend is gaining or losing engagement.
type Direction string

const (
	DirectionUpward   Direction = "upward"
	DirectionDownward Direction = "downward"
)

func (d Direction) Valid() bool {
	return d == DirectionUpward || d == DirectionDownward
}

const (
	// CategoryMostViral is ingested like any other category, but as a filter
	// it matches every category.
	CategoryMostViral = "Most Viral"
	// CategoryAll is what the browser sends when no pill is selected.
	CategoryAll = "All"
)

// Categories is the ingestion catalog, in the order a pass walks it.
var Categories = []string{
	CategoryMostViral,
	"Dance",
	"Memes",
	"Comedy",
	"Music",
	"Fashion",
	"Beauty",
	"Challenges",
	"Gaming",
	"Tech",
	"Business",
	"Educational",
	"Food",
	"DIY",
	"Sports",
	"Travel",
}

// IsWildcard reports whether filtering by category should match every stored
// category.
func IsWildcard(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" ||
		strings.EqualFold(category, CategoryAll) ||
		strings.EqualFold(category, CategoryMostViral)
}
