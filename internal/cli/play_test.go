package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/timer/timertest"
)

func TestPlayer_PlayQuiz(t *testing.T) {
	p, out, _ := makePlayer(t, strings.NewReader("5\n1\n\n3\n\n"))

	err := p.PlayQuiz(context.Background(), "u1", "programming-fundamentals")
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Question 1/2 (30s): What does 'API' stand for?")
	assert.Contains(t, s, "answer index 4 out of range")
	assert.Contains(t, s, "Question 2/2 (20s)")
	assert.Equal(t, 2, strings.Count(s, "Correct!"))
	assert.Contains(t, s, "Quiz completed: 2/2 correct, 20 points, 100.0%")
	assert.Contains(t, s, "Session stats for u1: 1 quizzes (avg 20), 0/0 puzzles solved, level 1 (10 XP)")
}

func TestPlayer_PlayQuiz_Timeout(t *testing.T) {
	in, w := io.Pipe()
	p, out, clock := makePlayer(t, in)

	done := make(chan error, 1)
	go func() { done <- p.PlayQuiz(context.Background(), "u1", "programming-fundamentals") }()

	require.Eventually(t, func() bool { return clock.TickerCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 30, clock.Ticker().TickN(30))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Time's up!") }, time.Second, 5*time.Millisecond)

	_, err := io.WriteString(w, "\n3\n\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("quiz did not complete")
	}

	assert.Contains(t, out.String(), "Quiz completed: 1/2 correct, 10 points")
}

func TestPlayer_PlayQuiz_InputClosed(t *testing.T) {
	p, _, _ := makePlayer(t, strings.NewReader("1\n"))

	err := p.PlayQuiz(context.Background(), "u1", "programming-fundamentals")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPlayer_PlayPuzzle(t *testing.T) {
	p, out, _ := makePlayer(t, strings.NewReader("hint\nhint\nhola mundo\nHello World\n"))

	err := p.PlayPuzzle(context.Background(), "u1", "code-cipher")
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "KHOOR ZRUOG")
	assert.Contains(t, s, "Hint: This is a Caesar cipher shifted by 3 positions")
	assert.Contains(t, s, "No hints left.")
	assert.Contains(t, s, "Not quite, try again.")
	assert.Contains(t, s, "Solved!")
	assert.Contains(t, s, "1/1 puzzles solved, level 1 (15 XP)")
}

func TestPlayer_List(t *testing.T) {
	p, out, _ := makePlayer(t, strings.NewReader(""))

	require.NoError(t, p.List(context.Background()))

	s := out.String()
	for _, id := range []string{"programming-fundamentals", "space-exploration", "code-cipher", "word-transformation"} {
		assert.Contains(t, s, id)
	}
}

func makePlayer(t *testing.T, in io.Reader) (*player, *syncBuffer, *timertest.Clock) {
	t.Helper()

	catalog, err := content.DefaultCatalog()
	require.NoError(t, err)

	eb := event.NewBus()
	clock := timertest.NewClock(time.Date(2024, 10, 19, 0, 0, 0, 0, time.UTC))
	out := &syncBuffer{}

	p := newPlayer(playerConfig{
		EventBus:      eb,
		Catalog:       catalog,
		NewTickerFunc: clock.NewTicker,
		In:            in,
		Out:           out,
	})
	t.Cleanup(func() {
		p.sessions.Stop()
		eb.Stop()
	})

	return p, out, clock
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
