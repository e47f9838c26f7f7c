package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/errors"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/telemetry"
	"github.com/victornm/quizplay/internal/timer"
)

const defaultRetainCompleted = 10 * time.Minute

// Content is the read side of the content repository used to start sessions.
type Content interface {
	GetQuiz(ctx context.Context, id string) (*domain.QuizDefinition, error)
	GetPuzzle(ctx context.Context, id string) (*domain.PuzzleDefinition, error)
}

type Config struct {
	Content       Content
	EventBus      *event.Bus
	NewTickerFunc timer.NewTickerFunc
	Now           func() time.Time
	// RetainCompleted is how long a completed session can still be read before it is dropped.
	RetainCompleted time.Duration
}

// Service owns every live session. A user has at most one active session per quiz or puzzle;
// starting another one abandons the previous attempt.
type Service struct {
	content   Content
	eb        *event.Bus
	newTicker timer.NewTickerFunc
	now       func() time.Time
	retain    time.Duration

	mu      sync.Mutex
	quizzes map[string]*Quiz
	puzzles map[string]*Puzzle
	active  map[activeKey]string
	keys    map[string]activeKey
	timers  map[string]*time.Timer
}

type activeKey struct {
	username  string
	kind      string
	contentID string
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.RetainCompleted <= 0 {
		c.RetainCompleted = defaultRetainCompleted
	}

	return &Service{
		content:   c.Content,
		eb:        c.EventBus,
		newTicker: c.NewTickerFunc,
		now:       c.Now,
		retain:    c.RetainCompleted,
		quizzes:   make(map[string]*Quiz),
		puzzles:   make(map[string]*Puzzle),
		active:    make(map[activeKey]string),
		keys:      make(map[string]activeKey),
		timers:    make(map[string]*time.Timer),
	}
}

type StartQuizRequest struct {
	Username string
	QuizID   string
}

// StartQuiz starts a quiz attempt for a user.
func (s *Service) StartQuiz(ctx context.Context, req StartQuizRequest) (*QuizSnapshot, error) {
	if req.Username == "" {
		return nil, errors.InvalidInput("username is required")
	}

	def, err := s.content.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	id := newID()
	key := activeKey{username: req.Username, kind: KindQuiz, contentID: def.ID}

	q := NewQuiz(QuizConfig{
		ID:            id,
		Username:      req.Username,
		NewTickerFunc: s.newTicker,
		Now:           s.now,
		OnChange: func(snap QuizSnapshot) {
			s.publishChange(snap.SessionID, snap.Username, KindQuiz, snap.Version, snap)
		},
		OnComplete: func(r domain.QuizResult) {
			s.quizCompleted(id, r)
		},
	})

	snap, err := q.Start(def)
	if err != nil {
		return nil, err
	}

	s.register(id, key, func() { s.quizzes[id] = q })
	telemetry.SessionStarted(KindQuiz)
	slog.InfoContext(ctx, "session: quiz started", "session", id, "username", req.Username, "quiz", def.ID)

	return &snap, nil
}

type GetSessionRequest struct {
	SessionID string
	// Username, when set, must own the session.
	Username string
}

func (s *Service) GetQuizSession(_ context.Context, req GetSessionRequest) (*QuizSnapshot, error) {
	q, err := s.quiz(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	snap := q.Snapshot()
	return &snap, nil
}

type SelectAnswerRequest struct {
	SessionID string
	Username  string
	Index     int
}

// SelectAnswer records the answer to the current question. A question that already has an
// answer keeps it and the call returns the unchanged snapshot.
func (s *Service) SelectAnswer(_ context.Context, req SelectAnswerRequest) (*QuizSnapshot, error) {
	q, err := s.quiz(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	snap, err := q.SelectAnswer(req.Index)
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

type NextQuestionRequest struct {
	SessionID string
	Username  string
}

// NextQuestion moves past an answered question. After the last question the snapshot carries
// the result.
func (s *Service) NextQuestion(_ context.Context, req NextQuestionRequest) (*QuizSnapshot, error) {
	q, err := s.quiz(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	snap, err := q.Next()
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

type AbandonRequest struct {
	SessionID string
	Username  string
}

// AbandonQuiz discards a quiz session. Abandoned attempts produce no result.
func (s *Service) AbandonQuiz(ctx context.Context, req AbandonRequest) error {
	q, err := s.quiz(req.SessionID, req.Username)
	if err != nil {
		return err
	}

	s.abandonQuiz(ctx, q)
	return nil
}

type StartPuzzleRequest struct {
	Username string
	PuzzleID string
}

// StartPuzzle starts a puzzle attempt for a user.
func (s *Service) StartPuzzle(ctx context.Context, req StartPuzzleRequest) (*PuzzleSnapshot, error) {
	if req.Username == "" {
		return nil, errors.InvalidInput("username is required")
	}

	def, err := s.content.GetPuzzle(ctx, req.PuzzleID)
	if err != nil {
		return nil, err
	}

	id := newID()
	key := activeKey{username: req.Username, kind: KindPuzzle, contentID: def.ID}

	p := NewPuzzle(PuzzleConfig{
		ID:            id,
		Username:      req.Username,
		NewTickerFunc: s.newTicker,
		Now:           s.now,
		OnChange: func(snap PuzzleSnapshot) {
			s.publishChange(snap.SessionID, snap.Username, KindPuzzle, snap.Version, snap)
		},
		OnComplete: func(r domain.PuzzleResult) {
			s.puzzleCompleted(id, r)
		},
	})

	snap, err := p.Start(def)
	if err != nil {
		return nil, err
	}

	s.register(id, key, func() { s.puzzles[id] = p })
	telemetry.SessionStarted(KindPuzzle)
	slog.InfoContext(ctx, "session: puzzle started", "session", id, "username", req.Username, "puzzle", def.ID)

	return &snap, nil
}

func (s *Service) GetPuzzleSession(_ context.Context, req GetSessionRequest) (*PuzzleSnapshot, error) {
	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	snap := p.Snapshot()
	return &snap, nil
}

type UpdateAnswerRequest struct {
	SessionID string
	Username  string
	Answer    string
}

// UpdatePuzzleAnswer stores the draft answer of a puzzle session.
func (s *Service) UpdatePuzzleAnswer(_ context.Context, req UpdateAnswerRequest) (*PuzzleSnapshot, error) {
	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	snap := p.UpdateAnswer(req.Answer)
	return &snap, nil
}

type SubmitAnswerRequest struct {
	SessionID string
	Username  string
	Answer    string
}

// SubmitPuzzleAnswer checks an answer. Submitting to a completed puzzle changes nothing.
func (s *Service) SubmitPuzzleAnswer(_ context.Context, req SubmitAnswerRequest) (*PuzzleSnapshot, error) {
	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	before := p.Snapshot().Attempts
	snap := p.SubmitAnswer(req.Answer)
	if snap.Attempts > before {
		telemetry.PuzzleSubmitted(snap.Solved)
	}

	return &snap, nil
}

type RequestHintRequest struct {
	SessionID string
	Username  string
}

type RequestHintResponse struct {
	// Hint is empty when Revealed is false.
	Hint     string
	Revealed bool
	Session  PuzzleSnapshot
}

// RequestHint reveals the next hint of a puzzle session, if any is left.
func (s *Service) RequestHint(_ context.Context, req RequestHintRequest) (*RequestHintResponse, error) {
	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return nil, err
	}

	hint, ok, snap := p.RequestHint()
	if ok {
		telemetry.PuzzleHintRevealed()
	}

	return &RequestHintResponse{
		Hint:     hint,
		Revealed: ok,
		Session:  snap,
	}, nil
}

// AbandonPuzzle discards a puzzle session. Abandoned attempts produce no result.
func (s *Service) AbandonPuzzle(ctx context.Context, req AbandonRequest) error {
	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return err
	}

	s.abandonPuzzle(ctx, p)
	return nil
}

type SubscribeRequest struct {
	SessionID string
	Username  string
}

// Subscribe streams QuizSnapshot or PuzzleSnapshot values of a session, starting with the
// current one. The channel is closed when the session is released or cancel is called.
func (s *Service) Subscribe(_ context.Context, req SubscribeRequest) (<-chan any, func(), error) {
	if q, err := s.quiz(req.SessionID, req.Username); err == nil {
		ch, cancel := q.Subscribe()
		return forward(ch), cancel, nil
	} else if !errors.HasCode(err, errors.CodeNotFound) {
		return nil, nil, err
	}

	p, err := s.puzzle(req.SessionID, req.Username)
	if err != nil {
		return nil, nil, err
	}

	ch, cancel := p.Subscribe()
	return forward(ch), cancel, nil
}

func forward[T any](in <-chan T) <-chan any {
	out := make(chan any, subscriberBuffer)

	go func() {
		defer close(out)
		for v := range in {
			out <- v
		}
	}()

	return out
}

// Stop releases every session. Sessions in progress are abandoned without results.
func (s *Service) Stop() {
	s.mu.Lock()
	quizzes := make([]*Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		quizzes = append(quizzes, q)
	}
	puzzles := make([]*Puzzle, 0, len(s.puzzles))
	for _, p := range s.puzzles {
		puzzles = append(puzzles, p)
	}
	s.mu.Unlock()

	ctx := context.Background()
	for _, q := range quizzes {
		s.abandonQuiz(ctx, q)
	}
	for _, p := range puzzles {
		s.abandonPuzzle(ctx, p)
	}
}

// register stores a started session and abandons the user's previous attempt at the same item.
func (s *Service) register(id string, key activeKey, store func()) {
	s.mu.Lock()
	prev, hasPrev := s.active[key]
	s.active[key] = id
	s.keys[id] = key
	store()
	s.mu.Unlock()

	if !hasPrev {
		return
	}

	ctx := context.Background()
	slog.InfoContext(ctx, "session: replacing active session", "session", prev, "username", key.username, "kind", key.kind)
	if q, err := s.quiz(prev, ""); err == nil {
		s.abandonQuiz(ctx, q)
	}
	if p, err := s.puzzle(prev, ""); err == nil {
		s.abandonPuzzle(ctx, p)
	}
}

func (s *Service) abandonQuiz(ctx context.Context, q *Quiz) {
	if !s.release(q.ID()) {
		return
	}

	if q.Snapshot().State != QuizCompleted {
		telemetry.SessionAbandoned(KindQuiz)
		q.Reset()
	}
	q.Close()
	telemetry.SessionReleased(KindQuiz)
	slog.InfoContext(ctx, "session: quiz released", "session", q.ID(), "username", q.Username())
}

func (s *Service) abandonPuzzle(ctx context.Context, p *Puzzle) {
	if !s.release(p.ID()) {
		return
	}

	if p.Snapshot().State != PuzzleCompleted {
		telemetry.SessionAbandoned(KindPuzzle)
		p.Reset()
	}
	p.Close()
	telemetry.SessionReleased(KindPuzzle)
	slog.InfoContext(ctx, "session: puzzle released", "session", p.ID(), "username", p.Username())
}

// release forgets a session. It reports false when the session was already released.
func (s *Service) release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, isQuiz := s.quizzes[id]
	_, isPuzzle := s.puzzles[id]
	if !isQuiz && !isPuzzle {
		return false
	}

	delete(s.quizzes, id)
	delete(s.puzzles, id)
	s.deactivateLocked(id)
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	return true
}

func (s *Service) deactivateLocked(id string) {
	key, ok := s.keys[id]
	if !ok {
		return
	}

	delete(s.keys, id)
	if s.active[key] == id {
		delete(s.active, key)
	}
}

func (s *Service) quizCompleted(id string, r domain.QuizResult) {
	ctx := context.Background()

	telemetry.SessionCompleted(KindQuiz, r.TimeSpent)
	for _, a := range r.Answers {
		telemetry.QuizAnswered(a.Correct, a.SelectedIndex == domain.NoAnswer)
	}
	slog.InfoContext(ctx, "session: quiz completed",
		"session", id, "username", r.Username, "quiz", r.QuizID, "score", r.Score)

	s.finish(id, func() {
		if q, err := s.quiz(id, ""); err == nil {
			s.abandonQuiz(ctx, q)
		}
	})
	s.eb.Publish(ctx, domain.EventQuizCompleted{Result: r})
}

func (s *Service) puzzleCompleted(id string, r domain.PuzzleResult) {
	ctx := context.Background()

	telemetry.SessionCompleted(KindPuzzle, r.TimeSpent)
	slog.InfoContext(ctx, "session: puzzle completed",
		"session", id, "username", r.Username, "puzzle", r.PuzzleID, "solved", r.Solved)

	s.finish(id, func() {
		if p, err := s.puzzle(id, ""); err == nil {
			s.abandonPuzzle(ctx, p)
		}
	})
	s.eb.Publish(ctx, domain.EventPuzzleCompleted{Result: r})
}

// finish frees the user's slot right away and drops the session once the retention ends.
func (s *Service) finish(id string, drop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deactivateLocked(id)
	if _, ok := s.quizzes[id]; !ok {
		if _, ok := s.puzzles[id]; !ok {
			return
		}
	}
	s.timers[id] = time.AfterFunc(s.retain, drop)
}

// publishChange hands a transition to the event bus. Handlers run concurrently, so consumers
// order snapshots of a session by Version.
func (s *Service) publishChange(id, username, kind string, version uint64, snap any) {
	s.eb.Publish(context.Background(), domain.EventSessionChanged{
		SessionID: id,
		Username:  username,
		Kind:      kind,
		Version:   version,
		Snapshot:  snap,
	})
}

func (s *Service) quiz(id, username string) (*Quiz, error) {
	s.mu.Lock()
	q, ok := s.quizzes[id]
	s.mu.Unlock()

	if !ok {
		return nil, errors.NotFound("quiz session %s not found", id)
	}
	if username != "" && username != q.Username() {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("session %s belongs to another user", id))
	}
	return q, nil
}

func (s *Service) puzzle(id, username string) (*Puzzle, error) {
	s.mu.Lock()
	p, ok := s.puzzles[id]
	s.mu.Unlock()

	if !ok {
		return nil, errors.NotFound("puzzle session %s not found", id)
	}
	if username != "" && username != p.Username() {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("session %s belongs to another user", id))
	}
	return p, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
