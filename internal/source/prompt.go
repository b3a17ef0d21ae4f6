package source

import "fmt"

const systemPrompt = `You are a trend analysis expert. Return EXACTLY 10 of today's most current TikTok trends as a raw JSON array with NO markdown or code blocks.
Each element must be an object with these fields:
  title (string), description (string, one or two sentences), category (string), platform (always "TikTok"),
  engagement (integer between 10000 and 1000000), rank (integer 1-10, 1 is the hottest),
  trendDirection ("upward" or "downward").
Focus on trends that are actively viral today.`

const userPrompt = `List exactly 10 of today's hottest TikTok %s trends that are currently viral. Return ONLY the JSON array.`

func promptFor(category string) string {
	return fmt.Sprintf(userPrompt, category)
}
