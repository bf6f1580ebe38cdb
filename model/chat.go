package model

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleData      = "data"

	AnnotationRelatedQuestions = "related-questions"
	AnnotationSystemMessage    = "system-message"
	AnnotationToolCall         = "tool_call"
)

type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Path      string    `json:"path"`
	SharePath string    `json:"sharePath,omitempty"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	ID              string           `json:"id,omitempty"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	Data            *Annotation      `json:"data,omitempty"` // payload of data role messages
	Annotations     []Annotation     `json:"annotations,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
}

type Annotation struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Text string `json:"text,omitempty"`
}

type ToolInvocation struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Args       any    `json:"args"`
	State      string `json:"state"`
	Result     any    `json:"result,omitempty"`
}

// RelatedQuestions is the data of a related-questions annotation
type RelatedQuestions struct {
	Items []RelatedQuestion `json:"items"`
}

type RelatedQuestion struct {
	Query string `json:"query"`
}

// DecodeMessages turns a persisted messages field into a slice. Anything
// unparsable results in an empty slice, never nil.
func DecodeMessages(raw string) []Message {
	var msgs []Message
	if raw == "" || json.Unmarshal([]byte(raw), &msgs) != nil || msgs == nil {
		return []Message{}
	}

	return msgs
}
