package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/facundoguellutn/mapsy/internal/types"
)

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// extractJSONArray pulls the recommendation payload out of a model reply.
// A fenced ```json block wins; otherwise the outermost bracketed span is
// taken. Returns "" when neither is present.
func extractJSONArray(response string) string {
	if m := fencedJSONRe.FindStringSubmatch(response); m != nil {
		return m[1]
	}

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return response[start : end+1]
}

// parseRecommendations turns a free-form model reply into validated place
// recommendations. Unparseable replies and replies without a JSON array
// yield an empty slice, never an error; malformed entries are dropped and
// implausible optional values are omitted rather than kept.
func parseRecommendations(response string) []types.PlaceRecommendation {
	jsonStr := extractJSONArray(response)
	if jsonStr == "" {
		return []types.PlaceRecommendation{}
	}

	var rawEntries []json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &rawEntries); err != nil {
		return []types.PlaceRecommendation{}
	}

	recommendations := make([]types.PlaceRecommendation, 0, len(rawEntries))
	for _, raw := range rawEntries {
		if rec, ok := decodeRecommendation(raw); ok {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// decodeRecommendation validates a single entry. name, type and description
// are required; wrongly typed optional fields are discarded without failing
// the entry.
func decodeRecommendation(raw json.RawMessage) (types.PlaceRecommendation, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return types.PlaceRecommendation{}, false
	}

	rec := types.PlaceRecommendation{
		Name:        decodeString(fields["name"]),
		Type:        decodeString(fields["type"]),
		Description: decodeString(fields["description"]),
	}
	if rec.Name == "" || rec.Type == "" || rec.Description == "" {
		return types.PlaceRecommendation{}, false
	}

	if d, ok := decodeNumber(fields["distance"]); ok && d >= 0 {
		rec.Distance = &d
	}
	if r, ok := decodeNumber(fields["rating"]); ok && r >= 0 && r <= 5 {
		rec.Rating = &r
	}
	if c, ok := decodeCoordinates(fields["coordinates"]); ok {
		rec.Coordinates = &c
	}
	if s := decodeString(fields["imageUrl"]); s != "" {
		rec.ImageURL = &s
	}
	if s := decodeString(fields["openingHours"]); s != "" {
		rec.OpeningHours = &s
	}
	return rec, true
}

func decodeString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func decodeCoordinates(raw json.RawMessage) (types.Coordinates, bool) {
	if raw == nil {
		return types.Coordinates{}, false
	}
	var c types.Coordinates
	if err := json.Unmarshal(raw, &c); err != nil {
		return types.Coordinates{}, false
	}
	return c, true
}
