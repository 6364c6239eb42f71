package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DandyChux/raecer-bot/app/config"
	"github.com/DandyChux/raecer-bot/app/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Session: config.Session{
			Greeting: "Hello! I'm Cornelius. Tell me about your medical history.",
			MaxTurns: 40,
		},
		NER: config.NER{TimeoutSeconds: 5},
		OpenAI: config.OpenAI{
			Reply:   config.ModelConfig{TimeoutSeconds: 5},
			Summary: config.ModelConfig{TimeoutSeconds: 5},
		},
	}
}

type fakeExtractor struct {
	entities map[string][]string
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (store.EntityMap, error) {
	if f.err != nil {
		return store.EntityMap{}, f.err
	}
	return store.EntityMapFrom(f.entities), nil
}

type fakeCompleter struct {
	mu        sync.Mutex
	reply     string
	err       error
	delay     time.Duration
	seenTurns []int
}

func (f *fakeCompleter) Complete(_ context.Context, turns []store.Turn, _ store.EntityMap) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.seenTurns = append(f.seenTurns, len(turns))
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestEngine(t *testing.T, extractor Extractor, completer Completer) (*Service, *store.Service) {
	t.Helper()

	sessions, err := store.New(nil)
	require.NoError(t, err)

	return NewService(testConfig(), sessions, extractor, completer), sessions
}

func TestStartReturnsGreetingAndActiveSession(t *testing.T) {
	engine, sessions := newTestEngine(t, &fakeExtractor{}, &fakeCompleter{reply: "ok"})

	result := engine.Start()
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.Greeting)

	sess, err := sessions.Get(result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, sess.Status)
	assert.Empty(t, sess.Turns)
}

func TestProcessMessageInvalidInput(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeExtractor{}, &fakeCompleter{reply: "ok"})
	started := engine.Start()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := engine.ProcessMessage(context.Background(), started.SessionID, text)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestProcessMessageNotFound(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeExtractor{}, &fakeCompleter{reply: "ok"})

	_, err := engine.ProcessMessage(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessMessageInvalidState(t *testing.T) {
	engine, sessions := newTestEngine(t, &fakeExtractor{}, &fakeCompleter{reply: "ok"})
	started := engine.Start()

	require.NoError(t, sessions.Complete(started.SessionID, &store.PatientData{}, &store.ProCtcaeData{}))

	_, err := engine.ProcessMessage(context.Background(), started.SessionID, "hello")
	assert.ErrorIs(t, err, store.ErrInvalidState)

	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
}

func TestProcessMessageScenario(t *testing.T) {
	extractor := &fakeExtractor{entities: map[string][]string{
		"PROBLEM": {"hives"},
		"TEST":    {"CT scan"},
	}}
	engine, sessions := newTestEngine(t, extractor, &fakeCompleter{reply: "I'm sorry to hear that. Was it itchy?"})
	started := engine.Start()

	result, err := engine.ProcessMessage(context.Background(), started.SessionID,
		"I had hives after my last CT scan with contrast dye")
	require.NoError(t, err)

	assert.NotEmpty(t, result.Reply)
	assert.Equal(t, []string{"hives"}, result.Entities.Terms("PROBLEM"))
	assert.Equal(t, []string{"CT scan"}, result.Entities.Terms("TEST"))
	assert.False(t, result.ConversationEnded)
	assert.Equal(t, 2, result.MessageCount)

	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, store.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, store.RoleAssistant, sess.Turns[1].Role)
	assert.Equal(t, []string{"hives"}, sess.Entities.Terms("PROBLEM"))
}

func TestProcessMessageExtractionFailureDegrades(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("ner sidecar down")}
	engine, sessions := newTestEngine(t, extractor, &fakeCompleter{reply: "Tell me more."})
	started := engine.Start()

	result, err := engine.ProcessMessage(context.Background(), started.SessionID, "I feel dizzy")
	require.NoError(t, err)

	assert.True(t, result.Entities.IsEmpty())
	assert.Equal(t, 2, result.MessageCount)

	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 2)
	assert.True(t, sess.Entities.IsEmpty())
}

func TestProcessMessageUpstreamFailureCommitsNothing(t *testing.T) {
	extractor := &fakeExtractor{entities: map[string][]string{"PROBLEM": {"hives"}}}
	engine, sessions := newTestEngine(t, extractor, &fakeCompleter{err: errors.New("model unavailable")})
	started := engine.Start()

	_, err := engine.ProcessMessage(context.Background(), started.SessionID, "I had hives")
	assert.ErrorIs(t, err, ErrUpstream)

	// No partial state: neither the user turn nor the entity merge landed.
	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
	assert.True(t, sess.Entities.IsEmpty())
	assert.Equal(t, store.StatusActive, sess.Status)
}

func TestProcessMessageAccumulatesAcrossTurns(t *testing.T) {
	extractor := &fakeExtractor{entities: map[string][]string{"PROBLEM": {"hives"}}}
	engine, sessions := newTestEngine(t, extractor, &fakeCompleter{reply: "Go on."})
	started := engine.Start()

	_, err := engine.ProcessMessage(context.Background(), started.SessionID, "I had hives")
	require.NoError(t, err)

	extractor.entities = map[string][]string{"PROBLEM": {"itching", "hives"}}

	result, err := engine.ProcessMessage(context.Background(), started.SessionID, "And itching, plus more hives")
	require.NoError(t, err)
	assert.Equal(t, 4, result.MessageCount)

	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hives", "itching"}, sess.Entities.Terms("PROBLEM"))
}

func TestConcurrentMessagesOnSameSessionSerialize(t *testing.T) {
	completer := &fakeCompleter{reply: "Noted.", delay: 30 * time.Millisecond}
	engine, sessions := newTestEngine(t, &fakeExtractor{}, completer)
	started := engine.Start()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ProcessMessage(context.Background(), started.SessionID, "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := sessions.Get(started.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 4)

	// The second call observed the first call's committed exchange: the
	// completer saw 1 turn the first time and 3 turns the second.
	completer.mu.Lock()
	defer completer.mu.Unlock()
	assert.ElementsMatch(t, []int{1, 3}, completer.seenTurns)
}
