package curator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"newsdigest/internal/types"
)

const itemPrompt = `You are a professional AI news curator. Evaluate the following AI-related news article.

Scoring rubric:
- High (80-100): major updates or new feature releases of ChatGPT, Claude or Gemini.
- Medium (50-79): launches of new AI tools or services, especially ones that can be tried for free.
- Low (0-49): small adoption stories from individual companies, or general opinion pieces about AI.

Instructions:
1. Score the importance of this article from 0 to 100.
2. Write a clear summary of 3 to 5 lines in {{.Language}}.
3. Reply with JSON only, without markdown fences, in exactly this shape:
{"title": {{json .Item.Title}}, "url": {{json .Item.ID}}, "summary": "<your summary>", "score": 85}

Title: {{.Item.Title}}
URL: {{.Item.ID}}
{{- if .Item.Text}}
Article text:
"""
{{.Item.Text}}
"""
{{- end}}
`

const batchPrompt = `You are a professional AI news curator. Evaluate each of the following AI-related news articles.

Scoring rubric:
- High (80-100): major updates or new feature releases of ChatGPT, Claude or Gemini.
- Medium (50-79): launches of new AI tools or services, especially ones that can be tried for free.
- Low (0-49): small adoption stories from individual companies, or general opinion pieces about AI.

Instructions:
1. Score the importance of every article from 0 to 100.
2. Write a clear summary of 3 to 5 lines in {{.Language}} for every article.
3. Reply with a JSON array only, without markdown fences, one object per article, copying the url exactly:
[{"title": "<title>", "url": "<url>", "summary": "<your summary>", "score": 85}]

Articles:
{{- range $i, $item := .Items}}
{{inc $i}}. Title: {{$item.Title}}
   URL: {{$item.ID}}
{{- if $item.Text}}
   Text: {{$item.Text}}
{{- end}}
{{- end}}
`

type promptItem struct {
	ID          string
	Title       string
	PublishedAt string
	Text        string
}

type promptData struct {
	Language string
	Item     promptItem
	Items    []promptItem
}

func newPromptItem(c types.CandidateItem, text string) promptItem {
	return promptItem{
		ID:          c.ID,
		Title:       c.Title,
		PublishedAt: c.PublishedAt,
		Text:        text,
	}
}

var funcMap = template.FuncMap{
	"json": toJSON,
	"inc":  func(i int) int { return i + 1 },
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

func defaultTemplate(strategy Strategy) *template.Template {
	text := itemPrompt
	if strategy == Batch {
		text = batchPrompt
	}
	return template.Must(parseTemplate(string(strategy), text))
}

// LoadTemplate reads a prompt template from path. The template receives .Language and
// either .Item (per-item) or .Items (batch).
func LoadTemplate(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	return parseTemplate(path, string(data))
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
