package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizplay_sessions_started_total",
			Help: "Total number of play sessions started",
		},
		[]string{"kind"}, // quiz / puzzle
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizplay_sessions_finished_total",
			Help: "Total number of play sessions that left the active set",
		},
		[]string{"kind", "outcome"}, // outcome: completed / abandoned
	)

	activeSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quizplay_active_sessions_current",
			Help: "Current number of sessions held in memory",
		},
		[]string{"kind"},
	)

	quizAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizplay_quiz_answers_total",
			Help: "Total number of answers in completed quizzes",
		},
		[]string{"result"}, // correct / wrong / timeout
	)

	puzzleHints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizplay_puzzle_hints_total",
			Help: "Total number of revealed puzzle hints",
		},
	)

	puzzleAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizplay_puzzle_attempts_total",
			Help: "Total number of submitted puzzle answers",
		},
		[]string{"result"}, // correct / wrong
	)

	sessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizplay_session_duration_seconds",
			Help:    "Time from session start to result",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"kind"},
	)

	resultsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizplay_results_stored_total",
			Help: "Total number of results written to the result store",
		},
		[]string{"kind", "status"}, // status: success / failure
	)
)

func SessionStarted(kind string) {
	sessionsStarted.WithLabelValues(kind).Inc()
	activeSessions.WithLabelValues(kind).Inc()
}

func SessionCompleted(kind string, d time.Duration) {
	sessionsFinished.WithLabelValues(kind, "completed").Inc()
	sessionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func SessionAbandoned(kind string) {
	sessionsFinished.WithLabelValues(kind, "abandoned").Inc()
}

// SessionReleased is called when a session is dropped from memory.
func SessionReleased(kind string) {
	activeSessions.WithLabelValues(kind).Dec()
}

func QuizAnswered(correct, timedOut bool) {
	switch {
	case timedOut:
		quizAnswers.WithLabelValues("timeout").Inc()
	case correct:
		quizAnswers.WithLabelValues("correct").Inc()
	default:
		quizAnswers.WithLabelValues("wrong").Inc()
	}
}

func PuzzleHintRevealed() {
	puzzleHints.Inc()
}

func PuzzleSubmitted(correct bool) {
	if correct {
		puzzleAttempts.WithLabelValues("correct").Inc()
		return
	}
	puzzleAttempts.WithLabelValues("wrong").Inc()
}

func ResultStored(kind string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	resultsStored.WithLabelValues(kind, status).Inc()
}
