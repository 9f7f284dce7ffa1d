package enrich

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/category.md
var categoryPromptRaw string

//go:embed prompts/skills.md
var skillsPromptRaw string

//go:embed prompts/fraud.md
var fraudPromptRaw string

// Prompt templates are parsed once at package init and reused per candidate.
var (
	categoryTemplate = template.Must(template.New("category").Parse(categoryPromptRaw))
	skillsTemplate   = template.Must(template.New("skills").Parse(skillsPromptRaw))
	fraudTemplate    = template.Must(template.New("fraud").Parse(fraudPromptRaw))
)
