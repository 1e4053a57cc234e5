package types

import (
	"errors"
	"fmt"
	"strings"
)

type Task string

const (
	TaskTitle   Task = "title"
	TaskLead    Task = "lead"
	TaskGeneral Task = "general"
)

var ErrUnknownTask = errors.New("unknown task")

var AllTasks = []Task{TaskTitle, TaskLead, TaskGeneral}

func ParseTask(s string) (Task, error) {
	switch t := Task(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskTitle, TaskLead, TaskGeneral:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
}

// ParseTasks parses a comma separated task list, e.g. "title,lead".
func ParseTasks(s string) ([]Task, error) {
	var tasks []Task
	seen := make(map[Task]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		task, err := ParseTask(part)
		if err != nil {
			return nil, err
		}
		if !seen[task] {
			seen[task] = true
			tasks = append(tasks, task)
		}
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: empty task list", ErrUnknownTask)
	}
	return tasks, nil
}

// Known style tags. Rows may carry other tags; they are passed through verbatim.
const (
	StyleLifestyle = "đời sống"
	StyleTravel    = "du lịch"
	StyleSciTech   = "khoa học công nghệ"

	DefaultStyle = StyleLifestyle
)

var styleAliases = map[string]string{
	"khcn":     StyleSciTech,
	"doi song": StyleLifestyle,
	"du lich":  StyleTravel,
}

func NormalizeStyle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultStyle
	}
	if alias, ok := styleAliases[strings.ToLower(s)]; ok {
		return alias
	}
	return s
}

type ArticleRecord struct {
	ID      string
	Style   string
	Title   string
	Lead    string
	Content string
}

type PromptPair struct {
	System string
	User   string
}
