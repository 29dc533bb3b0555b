package models

// PromptAction is the verb of an interactive prompt step.
type PromptAction string

const (
	ActionAsk     PromptAction = "ask"
	ActionRespond PromptAction = "respond"
)

// CurrentPrompt is the state of an in-progress multi-step command for one chat.
type CurrentPrompt struct {
	Action    PromptAction `json:"action"`
	Command   Command      `json:"command"`
	Arguments []string     `json:"arguments"`
	Index     int          `json:"current_prompt_index"`
}
