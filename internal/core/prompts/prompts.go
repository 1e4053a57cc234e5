package prompts

import (
	"fmt"
	"strings"

	"headline-sft/internal/core/types"
)

// Fields are the article fields a prompt can embed. Which ones are used depends
// on the task: lead uses Content, title uses Lead and Content.
type Fields struct {
	Title   string
	Lead    string
	Content string
}

func FieldsFromArticle(article types.ArticleRecord) Fields {
	return Fields{Title: article.Title, Lead: article.Lead, Content: article.Content}
}

// Build renders the system and user prompt for a task and style. It fails only
// when the task is not one of the known tasks.
func Build(task types.Task, style string, fields Fields) (types.PromptPair, error) {
	tmpls, ok := templatesByTask[task]
	if !ok {
		return types.PromptPair{}, fmt.Errorf("%w: %q", types.ErrUnknownTask, task)
	}

	guidance, ok := styleGuidance[style]
	if !ok {
		guidance = defaultGuidance
	}

	system := new(strings.Builder)
	if err := tmpls.system.Execute(system, systemPromptFields{Style: style, Task: task, Guidance: guidance}); err != nil {
		return types.PromptPair{}, fmt.Errorf("error rendering %s system prompt: %w", task, err)
	}

	user := new(strings.Builder)
	if err := tmpls.user.Execute(user, userPromptFields(fields)); err != nil {
		return types.PromptPair{}, fmt.Errorf("error rendering %s user prompt: %w", task, err)
	}

	return types.PromptPair{
		System: strings.TrimSpace(system.String()),
		User:   strings.TrimSpace(user.String()),
	}, nil
}
