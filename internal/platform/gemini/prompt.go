package gemini

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/colloquyhq/colloquy-api/internal/chat"
	"github.com/colloquyhq/colloquy-api/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// maxSourceChars bounds how much of each knowledge entry goes into a prompt.
const maxSourceChars = 2000

var depthInstructions = map[domain.Depth]string{
	domain.DepthBrief:    "Answer in two or three sentences.",
	domain.DepthMedium:   "Answer in a few short paragraphs.",
	domain.DepthDetailed: "Give a thorough answer with examples where they help.",
}

type promptSource struct {
	Title   string
	URL     string
	Content string
}

type promptTurn struct {
	IsFromUser bool
	Content    string
}

type promptData struct {
	Query            string
	Audience         domain.Audience
	Tone             domain.Tone
	DepthInstruction string
	Context          string
	Sources          []promptSource
	History          []promptTurn
}

func parsePromptTemplate() (*template.Template, error) {
	return template.New("answer.tmpl").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(promptFS, "prompts/answer.tmpl")
}

// renderPrompt executes tmpl for req.
func renderPrompt(tmpl *template.Template, req chat.Request) (string, error) {
	if req.Query == "" {
		return "", ErrEmptyQuery
	}

	data := promptData{
		Query:            req.Query,
		Audience:         orDefault(req.Options.Audience, domain.DefaultAudience),
		Tone:             orDefault(req.Options.Tone, domain.DefaultTone),
		DepthInstruction: depthInstructions[orDefault(req.Options.Depth, domain.DefaultDepth)],
		Context:          contextText(req.Context),
	}
	for _, k := range req.Knowledge {
		content := k.Content
		if len(content) > maxSourceChars {
			content = content[:maxSourceChars]
		}
		data.Sources = append(data.Sources, promptSource{Title: k.Title, URL: k.URL, Content: content})
	}
	for _, m := range req.History {
		data.History = append(data.History, promptTurn{IsFromUser: m.IsFromUser, Content: m.Content})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// contextText renders caller context as indented JSON, or "" when there is
// nothing useful in it.
func contextText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]interface{}:
		if len(t) == 0 {
			return ""
		}
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}
