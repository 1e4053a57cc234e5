package types

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ConversationExample struct {
	Turns []Turn
}

// Validate checks that the example has exactly one system turn, placed first,
// followed by alternating user/assistant turns.
func (c ConversationExample) Validate() error {
	if len(c.Turns) == 0 {
		return fmt.Errorf("conversation has no turns")
	}
	if c.Turns[0].Role != RoleSystem {
		return fmt.Errorf("first turn must be %s, got %s", RoleSystem, c.Turns[0].Role)
	}
	for i, turn := range c.Turns[1:] {
		expected := RoleUser
		if i%2 == 1 {
			expected = RoleAssistant
		}
		if turn.Role != expected {
			return fmt.Errorf("turn %d: expected role %s, got %s", i+1, expected, turn.Role)
		}
	}
	return nil
}

// Text renders the turns as "role: content" lines, the form used for token counting.
func (c ConversationExample) Text() string {
	var b strings.Builder
	for i, turn := range c.Turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

func (c ConversationExample) Assistant() string {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleAssistant {
			return c.Turns[i].Content
		}
	}
	return ""
}
