package dataset

import (
	"errors"
	"fmt"
	"strings"

	"headline-sft/internal/core/cleaner"
	"headline-sft/internal/core/prompts"
	"headline-sft/internal/core/types"
)

const DefaultSystemPrompt = "You are a helpful assistant."

var ErrEmptyContent = errors.New("article content is empty")

// Compose assembles a system/user/assistant conversation. An empty label
// produces an example meant for live generation.
func Compose(pair types.PromptPair, label string) types.ConversationExample {
	return types.ConversationExample{
		Turns: []types.Turn{
			{Role: types.RoleSystem, Content: pair.System},
			{Role: types.RoleUser, Content: pair.User},
			{Role: types.RoleAssistant, Content: label},
		},
	}
}

// Label returns the ground truth an article provides for a task.
func Label(task types.Task, article types.ArticleRecord) (string, error) {
	switch task {
	case types.TaskTitle:
		return strings.TrimSpace(article.Title), nil
	case types.TaskLead:
		return strings.TrimSpace(article.Lead), nil
	case types.TaskGeneral:
		title, lead := strings.TrimSpace(article.Title), strings.TrimSpace(article.Lead)
		if title == "" || lead == "" {
			return title + lead, nil
		}
		return title + "\n" + lead, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownTask, task)
	}
}

// CleanArticle returns a copy of the article with markup stripped from its text fields.
func CleanArticle(article types.ArticleRecord) types.ArticleRecord {
	article.Style = types.NormalizeStyle(article.Style)
	article.Title = cleaner.Clean(article.Title)
	article.Lead = cleaner.Clean(article.Lead)
	article.Content = cleaner.Clean(article.Content)
	return article
}

// ComposeExample builds the training example for one (article, task) pair. The
// article is expected to be cleaned already.
func ComposeExample(task types.Task, article types.ArticleRecord, withLabel bool) (types.ConversationExample, error) {
	if strings.TrimSpace(article.Content) == "" {
		return types.ConversationExample{}, ErrEmptyContent
	}

	pair, err := prompts.Build(task, article.Style, prompts.FieldsFromArticle(article))
	if err != nil {
		return types.ConversationExample{}, err
	}

	label := ""
	if withLabel {
		label, err = Label(task, article)
		if err != nil {
			return types.ConversationExample{}, err
		}
	}

	return Compose(pair, label), nil
}

// Normalize drops turns with empty content and makes sure the conversation
// starts with a system turn.
func Normalize(example types.ConversationExample, defaultSystem string) types.ConversationExample {
	turns := make([]types.Turn, 0, len(example.Turns)+1)
	hasSystem := false
	for _, turn := range example.Turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if turn.Role == types.RoleSystem {
			hasSystem = true
		}
		turns = append(turns, types.Turn{Role: types.Role(strings.TrimSpace(string(turn.Role))), Content: content})
	}
	if !hasSystem {
		turns = append([]types.Turn{{Role: types.RoleSystem, Content: defaultSystem}}, turns...)
	}
	return types.ConversationExample{Turns: turns}
}
