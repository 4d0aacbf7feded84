package curator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"newsdigest/internal/types"
)

var errMalformed = errors.New("malformed oracle response")

type verdict struct {
	title   string
	url     string
	summary string
	score   int
}

// stripFences removes the markdown code fences models like to wrap JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func parseVerdict(res gjson.Result) (verdict, error) {
	if !res.IsObject() {
		return verdict{}, fmt.Errorf("%w: expected object, got %s", errMalformed, res.Type)
	}

	title := res.Get("title")
	if title.Exists() && title.Type != gjson.String {
		return verdict{}, fmt.Errorf("%w: title is not a string", errMalformed)
	}

	url := res.Get("url")
	if !url.Exists() {
		url = res.Get("id")
	}
	if url.Type != gjson.String {
		return verdict{}, fmt.Errorf("%w: url is missing or not a string", errMalformed)
	}

	summary := res.Get("summary")
	if summary.Type != gjson.String || strings.TrimSpace(summary.Str) == "" {
		return verdict{}, fmt.Errorf("%w: summary is missing or empty", errMalformed)
	}

	score := res.Get("score")
	if score.Type != gjson.Number {
		return verdict{}, fmt.Errorf("%w: score is missing or not a number", errMalformed)
	}
	if score.Num < 0 || score.Num > 100 || math.IsNaN(score.Num) {
		return verdict{}, fmt.Errorf("%w: score %v out of range", errMalformed, score.Num)
	}

	return verdict{
		title:   strings.TrimSpace(title.Str),
		url:     strings.TrimSpace(url.Str),
		summary: strings.TrimSpace(summary.Str),
		score:   int(math.Round(score.Num)),
	}, nil
}

func (v verdict) curate(candidate types.CandidateItem) types.CuratedItem {
	item := types.CuratedItem{
		CandidateItem: candidate,
		Summary:       v.summary,
		Score:         v.score,
	}
	if v.title != "" {
		item.Title = v.title
	}
	return item
}

// parseItem validates a per-item response. The candidate's ID is kept regardless of the
// url the oracle echoes back.
func parseItem(raw string, candidate types.CandidateItem) (types.CuratedItem, error) {
	text := stripFences(raw)
	if !gjson.Valid(text) {
		return types.CuratedItem{}, fmt.Errorf("%w: invalid JSON", errMalformed)
	}

	v, err := parseVerdict(gjson.Parse(text))
	if err != nil {
		return types.CuratedItem{}, err
	}
	return v.curate(candidate), nil
}

// parseBatch validates a batch response. The array itself must parse; bad entries, entries
// naming an unknown candidate and repeats of an already seen candidate are dropped.
func parseBatch(raw string, candidates []types.CandidateItem) ([]types.CuratedItem, int, error) {
	text := stripFences(raw)
	if !gjson.Valid(text) {
		return nil, 0, fmt.Errorf("%w: invalid JSON", errMalformed)
	}

	res := gjson.Parse(text)
	if !res.IsArray() {
		return nil, 0, fmt.Errorf("%w: expected array, got %s", errMalformed, res.Type)
	}

	byID := make(map[string]types.CandidateItem, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	seen := make(map[string]struct{})
	curated := make([]types.CuratedItem, 0, len(candidates))
	dropped := 0

	for _, entry := range res.Array() {
		v, err := parseVerdict(entry)
		if err != nil {
			dropped++
			continue
		}

		candidate, ok := byID[v.url]
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[v.url]; dup {
			dropped++
			continue
		}
		seen[v.url] = struct{}{}

		curated = append(curated, v.curate(candidate))
	}

	return curated, dropped, nil
}
