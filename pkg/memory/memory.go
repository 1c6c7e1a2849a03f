// Package memory keeps the bounded conversation state for one chat session:
// an append-only turn list used to build generation-prompt history, and a
// size-capped running transcript kept for UI and debugging.
package memory

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role     string
	Content  string
	HasImage bool
}

// Config bounds a conversation. Zero values mean the defaults below.
type Config struct {
	// Window is how many recent turns renderHistory considers.
	Window int
	// MaxContext is the soft byte cap on the running transcript.
	MaxContext int
	// KeepTail is how much of the transcript survives a truncation.
	KeepTail int
}

func (c *Config) applyDefaults() {
	if c.Window == 0 {
		c.Window = 6
	}
	if c.MaxContext == 0 {
		c.MaxContext = 2000
	}
	if c.KeepTail == 0 {
		c.KeepTail = 1000
	}
}

// Conversation is the per-session memory. It assumes a single writer; callers
// sharing a session across goroutines must serialize access themselves.
type Conversation struct {
	config  Config
	turns   []Turn
	running *Accumulator
}

func NewConversation(config Config) *Conversation {
	config.applyDefaults()
	return &Conversation{
		config:  config,
		running: NewAccumulator(config.MaxContext, config.KeepTail),
	}
}

// AppendTurn appends a turn. Turns are never mutated or removed except by
// Reset.
func (c *Conversation) AppendTurn(turn Turn) {
	c.turns = append(c.turns, turn)
}

// Turns returns the accumulated turns.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

// RenderHistory renders the recent conversation for the generation prompt:
// the last Window turns minus the most recent one, which is the in-flight
// turn being answered. Returns "" when there is no prior exchange to show.
func (c *Conversation) RenderHistory() string {
	if len(c.turns) < 2 {
		return ""
	}

	recent := c.turns
	if len(recent) > c.config.Window {
		recent = recent[len(recent)-c.config.Window:]
	}
	recent = recent[:len(recent)-1]

	history := ""
	for i, turn := range recent {
		role := "Student"
		if turn.Role == RoleAssistant {
			role = "Assistant"
		}
		content := turn.Content
		if turn.HasImage {
			content += " [Student also shared an image]"
		}
		if i > 0 {
			history += "\n"
		}
		history += role + ": " + content
	}
	return history
}

// HistoryFor renders the prompt history as if inflight had already been
// appended, without committing it. It lets the request pipeline build the
// prompt before the generation call while leaving memory untouched until
// that call succeeds.
func (c *Conversation) HistoryFor(inflight Turn) string {
	c.turns = append(c.turns, inflight)
	history := c.RenderHistory()
	c.turns = c.turns[:len(c.turns)-1]
	return history
}

// RecordExchange folds a completed question/answer pair into the running
// transcript.
func (c *Conversation) RecordExchange(userText, assistantText string) {
	c.running.Append("Student: " + userText + "\nAssistant: " + assistantText)
}

// RunningContext returns the capped transcript. It is not what the generator
// sees (RenderHistory is); it exists for UI and debugging.
func (c *Conversation) RunningContext() string {
	return c.running.String()
}

// Reset clears both the turn list and the running transcript.
func (c *Conversation) Reset() {
	c.turns = nil
	c.running.Reset()
}
