package domain

const (
	EventNameQuizCompleted      = "quiz.completed"
	EventNamePuzzleCompleted    = "puzzle.completed"
	EventNameSessionChanged     = "session.changed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventQuizCompleted struct {
	Result QuizResult
}

func (EventQuizCompleted) Name() string { return EventNameQuizCompleted }

type EventPuzzleCompleted struct {
	Result PuzzleResult
}

func (EventPuzzleCompleted) Name() string { return EventNamePuzzleCompleted }

// EventSessionChanged is published on every state transition of a play session.
// Timer ticks are not published. Version orders the events of one session; handlers may
// receive them out of order.
type EventSessionChanged struct {
	SessionID string
	Username  string
	Kind      string
	Version   uint64
	Snapshot  any
}

func (EventSessionChanged) Name() string { return EventNameSessionChanged }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
