package memory_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag/edurag/pkg/memory"
)

func TestRenderHistoryWindow(t *testing.T) {
	c := memory.NewConversation(memory.Config{})

	// 7 turns accumulated: only the last 6 are considered and the in-flight
	// one is dropped, so 5 lines render.
	for i := 1; i <= 7; i++ {
		role := memory.RoleUser
		if i%2 == 0 {
			role = memory.RoleAssistant
		}
		c.AppendTurn(memory.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	history := c.RenderHistory()
	lines := strings.Split(history, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Assistant: turn 2", lines[0])
	assert.Equal(t, "Assistant: turn 6", lines[4])
	assert.NotContains(t, history, "turn 7")
	assert.NotContains(t, history, "turn 1")
}

func TestRenderHistoryImageMarker(t *testing.T) {
	c := memory.NewConversation(memory.Config{})
	c.AppendTurn(memory.Turn{Role: memory.RoleUser, Content: "explain this diagram", HasImage: true})
	c.AppendTurn(memory.Turn{Role: memory.RoleAssistant, Content: "it shows a lever"})
	c.AppendTurn(memory.Turn{Role: memory.RoleUser, Content: "thanks"})

	history := c.RenderHistory()
	assert.Equal(t,
		"Student: explain this diagram [Student also shared an image]\nAssistant: it shows a lever",
		history)
}

func TestRenderHistoryNeedsPriorExchange(t *testing.T) {
	c := memory.NewConversation(memory.Config{})
	assert.Equal(t, "", c.RenderHistory())

	c.AppendTurn(memory.Turn{Role: memory.RoleUser, Content: "first question"})
	assert.Equal(t, "", c.RenderHistory())
}

func TestRecordExchangeSoftTruncation(t *testing.T) {
	c := memory.NewConversation(memory.Config{})

	// Fill the running context past the 2000-byte cap.
	filler := strings.Repeat("x", 2080)
	c.RecordExchange(filler[:1000], filler[1000:])

	before := c.RunningContext()
	require.Greater(t, len(before), 2000)

	c.RecordExchange("next question", "next answer")

	entry := "Student: next question\nAssistant: next answer"
	assert.Equal(t, before[len(before)-1000:]+"\n"+entry, c.RunningContext())
}

func TestRecordExchangeBelowCap(t *testing.T) {
	c := memory.NewConversation(memory.Config{})
	c.RecordExchange("q", "a")
	assert.Equal(t, "\nStudent: q\nAssistant: a", c.RunningContext())

	c.RecordExchange("q2", "a2")
	assert.Equal(t, "\nStudent: q\nAssistant: a\nStudent: q2\nAssistant: a2", c.RunningContext())
}

func TestTruncateIsPure(t *testing.T) {
	current := strings.Repeat("a", 2100)
	got := memory.Truncate(current, "E", 2000, 1000)
	assert.Equal(t, current[1100:]+"\nE", got)

	// At or under the cap nothing is dropped.
	assert.Equal(t, "abc\nE", memory.Truncate("abc", "E", 2000, 1000))
}

func TestReset(t *testing.T) {
	c := memory.NewConversation(memory.Config{})
	c.AppendTurn(memory.Turn{Role: memory.RoleUser, Content: "hello"})
	c.AppendTurn(memory.Turn{Role: memory.RoleAssistant, Content: "hi"})
	c.RecordExchange("hello", "hi")

	c.Reset()
	assert.Empty(t, c.Turns())
	assert.Equal(t, "", c.RunningContext())
	assert.Equal(t, "", c.RenderHistory())
}
