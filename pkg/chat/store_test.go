package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrompt = "you are a test assistant"

func TestNewStoreSeedsSystemTurn(t *testing.T) {
	s := NewStore(testPrompt)

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, RoleSystem, all[0].Role)
	assert.Equal(t, testPrompt, all[0].Content)
	assert.Empty(t, s.Visible())
}

func TestSystemTurnSurvivesAppends(t *testing.T) {
	s := NewStore(testPrompt)
	s.AppendUser("hello")
	s.AppendAssistant("hi")
	s.AppendUser("more")

	all := s.All()
	assert.Equal(t, RoleSystem, all[0].Role)
	assert.Equal(t, testPrompt, all[0].Content)
}

func TestVisibleExcludesSystemAndPreservesOrder(t *testing.T) {
	s := NewStore(testPrompt)
	s.AppendUser("one")
	s.AppendAssistant("two")
	s.AppendUser("three")

	visible := s.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
		{Role: RoleUser, Content: "three"},
	}, visible)
}

func TestAllReturnsCopy(t *testing.T) {
	s := NewStore(testPrompt)
	s.AppendUser("hello")

	all := s.All()
	all[0].Content = "tampered"

	assert.Equal(t, testPrompt, s.All()[0].Content)
}

func TestSeedWelcomeOnEmptyStore(t *testing.T) {
	s := NewStore(testPrompt)
	s.SeedWelcome("welcome!")

	visible := s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, RoleAssistant, visible[0].Role)
	assert.Equal(t, "welcome!", visible[0].Content)
}

func TestSeedWelcomeIsIdempotent(t *testing.T) {
	s := NewStore(testPrompt)
	s.SeedWelcome("welcome!")
	s.SeedWelcome("welcome!")

	assert.Len(t, s.Visible(), 1)
}

func TestSeedWelcomeNoOpWhenConversationStarted(t *testing.T) {
	s := NewStore(testPrompt)
	s.AppendUser("already talking")
	s.SeedWelcome("welcome!")

	visible := s.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, RoleUser, visible[0].Role)
}

func TestSubscribeFiresOnEveryAppend(t *testing.T) {
	s := NewStore(testPrompt)

	var notified int
	s.Subscribe(func() { notified++ })

	s.AppendUser("a")
	s.AppendAssistant("b")
	s.SeedWelcome("ignored") // no-op, no notification

	assert.Equal(t, 2, notified)
}

func TestSubscribeFiresOnSeedWelcome(t *testing.T) {
	s := NewStore(testPrompt)

	var notified int
	s.Subscribe(func() { notified++ })
	s.SeedWelcome("hello")

	assert.Equal(t, 1, notified)
}
