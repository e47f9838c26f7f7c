package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/victornm/quizplay/internal/content"
	"github.com/victornm/quizplay/internal/domain"
	"github.com/victornm/quizplay/internal/event"
	"github.com/victornm/quizplay/internal/result"
	"github.com/victornm/quizplay/internal/session"
	"github.com/victornm/quizplay/internal/timer"
)

func newPlayCmd(configPath *string) *cobra.Command {
	var (
		username string
		quizID   string
		puzzleID string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz or a puzzle in the terminal",
		Long: "Play a quiz or a puzzle in the terminal against the configured catalog. " +
			"Without --quiz or --puzzle the catalog is listed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			catalog, err := content.LoadCatalog(c.Content.Catalog)
			if err != nil {
				return err
			}

			eb := event.NewBus()
			defer eb.Stop()

			p := newPlayer(playerConfig{
				EventBus:      eb,
				Catalog:       catalog,
				NewTickerFunc: timer.NewTicker,
				In:            cmd.InOrStdin(),
				Out:           cmd.OutOrStdout(),
			})
			defer p.sessions.Stop()

			ctx := cmd.Context()
			switch {
			case quizID != "":
				return p.PlayQuiz(ctx, username, quizID)
			case puzzleID != "":
				return p.PlayPuzzle(ctx, username, puzzleID)
			default:
				return p.List(ctx)
			}
		},
	}

	cmd.Flags().StringVar(&username, "user", defaultUsername(), "player name")
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz to play")
	cmd.Flags().StringVar(&puzzleID, "puzzle", "", "puzzle to play")
	return cmd
}

func defaultUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

type playerConfig struct {
	EventBus      *event.Bus
	Catalog       *content.Catalog
	NewTickerFunc timer.NewTickerFunc
	In            io.Reader
	Out           io.Writer
}

// player drives a single session from line based input. Session updates pushed by the timers are
// rendered as they arrive.
type player struct {
	eb       *event.Bus
	content  *content.Service
	sessions *session.Service
	results  *result.Service

	lines <-chan string
	out   io.Writer
}

func newPlayer(c playerConfig) *player {
	results := result.NewService(result.Config{EventBus: c.EventBus})
	contents := content.NewService(content.Config{Catalog: c.Catalog, History: results})

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.In)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()

	return &player{
		eb:      c.EventBus,
		content: contents,
		sessions: session.NewService(session.Config{
			Content:       contents,
			EventBus:      c.EventBus,
			NewTickerFunc: c.NewTickerFunc,
		}),
		results: results,
		lines:   lines,
		out:     c.Out,
	}
}

func (p *player) List(ctx context.Context) error {
	qs, err := p.content.ListQuizzes(ctx, content.ListQuizzesRequest{})
	if err != nil {
		return err
	}

	fmt.Fprintln(p.out, "Quizzes:")
	for _, q := range qs {
		fmt.Fprintf(p.out, "  %-28s %s (%s, %d questions, ~%d min)\n",
			q.ID, q.Title, q.Difficulty, len(q.Questions), q.EstimatedTime)
	}

	ps, err := p.content.ListPuzzles(ctx, content.ListPuzzlesRequest{})
	if err != nil {
		return err
	}

	fmt.Fprintln(p.out, "Puzzles:")
	for _, pz := range ps {
		fmt.Fprintf(p.out, "  %-28s %s (%s, %s, %d points)\n",
			pz.ID, pz.Title, pz.Type, pz.Difficulty, pz.Points)
	}

	return nil
}

func (p *player) PlayQuiz(ctx context.Context, username, quizID string) error {
	snap, err := p.sessions.StartQuiz(ctx, session.StartQuizRequest{Username: username, QuizID: quizID})
	if err != nil {
		return err
	}

	updates, cancel, err := p.sessions.Subscribe(ctx, session.SubscribeRequest{SessionID: snap.SessionID})
	if err != nil {
		return err
	}
	defer cancel()

	r := quizRenderer{out: p.out, last: -1}
	r.render(*snap)

	for snap.State != session.QuizCompleted {
		select {
		case <-ctx.Done():
			return p.abandonQuiz(snap.SessionID, ctx.Err())

		case v, ok := <-updates:
			if !ok {
				return nil
			}
			if s, ok := v.(session.QuizSnapshot); ok && r.render(s) {
				snap = &s
			}

		case line, ok := <-p.lines:
			if !ok {
				return p.abandonQuiz(snap.SessionID, io.ErrUnexpectedEOF)
			}

			next, err := p.quizInput(ctx, *snap, line)
			if err != nil {
				fmt.Fprintf(p.out, "  %v\n", err)
				continue
			}
			if r.render(*next) {
				snap = next
			}
		}
	}

	return p.printStats(ctx, username)
}

func (p *player) quizInput(ctx context.Context, snap session.QuizSnapshot, line string) (*session.QuizSnapshot, error) {
	if snap.State == session.QuizAwaitingAdvance {
		return p.sessions.NextQuestion(ctx, session.NextQuestionRequest{SessionID: snap.SessionID})
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return nil, fmt.Errorf("type the number of an option")
	}

	return p.sessions.SelectAnswer(ctx, session.SelectAnswerRequest{
		SessionID: snap.SessionID,
		Index:     n - 1,
	})
}

func (p *player) abandonQuiz(id string, cause error) error {
	_ = p.sessions.AbandonQuiz(context.Background(), session.AbandonRequest{SessionID: id})
	return fmt.Errorf("quiz abandoned: %w", cause)
}

// quizRenderer prints every snapshot that moves the session forward exactly once.
type quizRenderer struct {
	out  io.Writer
	last int
}

func (r *quizRenderer) render(s session.QuizSnapshot) bool {
	pos := quizPosition(s)
	if pos <= r.last {
		return false
	}
	r.last = pos

	switch s.State {
	case session.QuizInProgress:
		q := s.Question
		fmt.Fprintf(r.out, "\nQuestion %d/%d (%ds): %s\n", s.QuestionIndex+1, s.TotalQuestions, q.TimeLimit, q.Prompt)
		for i, o := range q.Options {
			fmt.Fprintf(r.out, "  %d) %s\n", i+1, o)
		}

	case session.QuizAwaitingAdvance:
		a := s.Answers[s.QuestionIndex]
		switch {
		case a.SelectedIndex == domain.NoAnswer:
			fmt.Fprintln(r.out, "  Time's up!")
		case a.Correct:
			fmt.Fprintln(r.out, "  Correct!")
		default:
			fmt.Fprintf(r.out, "  Wrong, the answer was %d.\n", *s.Question.CorrectIndex+1)
		}
		if s.Question.Explanation != "" {
			fmt.Fprintf(r.out, "  %s\n", s.Question.Explanation)
		}
		fmt.Fprintln(r.out, "  Press Enter to continue.")

	case session.QuizCompleted:
		res := s.Result
		fmt.Fprintf(r.out, "\nQuiz completed: %d/%d correct, %d points, %s%% (%s) in %s\n",
			res.CorrectAnswers, res.TotalQuestions, res.Score, res.Percentage.StringFixed(1), res.Grade,
			res.TimeSpent.Round(100*time.Millisecond))
	}

	return true
}

// quizPosition orders quiz snapshots so stale updates can be dropped.
func quizPosition(s session.QuizSnapshot) int {
	switch s.State {
	case session.QuizAwaitingAdvance:
		return 2*s.QuestionIndex + 1
	case session.QuizCompleted:
		return 2 * s.TotalQuestions
	}
	return 2 * s.QuestionIndex
}

func (p *player) PlayPuzzle(ctx context.Context, username, puzzleID string) error {
	snap, err := p.sessions.StartPuzzle(ctx, session.StartPuzzleRequest{Username: username, PuzzleID: puzzleID})
	if err != nil {
		return err
	}

	updates, cancel, err := p.sessions.Subscribe(ctx, session.SubscribeRequest{SessionID: snap.SessionID})
	if err != nil {
		return err
	}
	defer cancel()

	pz := snap.Puzzle
	fmt.Fprintf(p.out, "%s (%s, %s)\n%s\n\n  %s\n", pz.Title, pz.Type, pz.Difficulty, pz.Description, pz.Content.Main)
	if snap.Timed {
		fmt.Fprintf(p.out, "You have %d minutes.", pz.TimeLimit)
	}
	fmt.Fprintf(p.out, " Type an answer, or \"hint\" (%d available).\n", snap.HintsAvailable)

	for snap.State != session.PuzzleCompleted {
		select {
		case <-ctx.Done():
			return p.abandonPuzzle(snap.SessionID, ctx.Err())

		case v, ok := <-updates:
			if !ok {
				return nil
			}
			if s, ok := v.(session.PuzzleSnapshot); ok && s.State == session.PuzzleCompleted {
				snap = &s
			}

		case line, ok := <-p.lines:
			if !ok {
				return p.abandonPuzzle(snap.SessionID, io.ErrUnexpectedEOF)
			}

			next, err := p.puzzleInput(ctx, *snap, line)
			if err != nil {
				fmt.Fprintf(p.out, "  %v\n", err)
				continue
			}
			snap = next
		}
	}

	res := snap.Result
	if res.Solved {
		fmt.Fprintf(p.out, "\nSolved! %d points (%s) in %s\n", res.Score, res.Performance, res.TimeSpent.Round(100*time.Millisecond))
	} else {
		fmt.Fprintf(p.out, "\nTime's up. %d points (%s)\n", res.Score, res.Performance)
	}

	return p.printStats(ctx, username)
}

func (p *player) puzzleInput(ctx context.Context, snap session.PuzzleSnapshot, line string) (*session.PuzzleSnapshot, error) {
	if strings.EqualFold(line, "hint") {
		resp, err := p.sessions.RequestHint(ctx, session.RequestHintRequest{SessionID: snap.SessionID})
		if err != nil {
			return nil, err
		}
		if !resp.Revealed {
			fmt.Fprintln(p.out, "  No hints left.")
		} else {
			fmt.Fprintf(p.out, "  Hint: %s\n", resp.Hint)
		}
		return &resp.Session, nil
	}

	next, err := p.sessions.SubmitPuzzleAnswer(ctx, session.SubmitAnswerRequest{
		SessionID: snap.SessionID,
		Answer:    line,
	})
	if err != nil {
		return nil, err
	}
	if next.State != session.PuzzleCompleted {
		fmt.Fprintln(p.out, "  Not quite, try again.")
	}
	return next, nil
}

func (p *player) abandonPuzzle(id string, cause error) error {
	_ = p.sessions.AbandonPuzzle(context.Background(), session.AbandonRequest{SessionID: id})
	return fmt.Errorf("puzzle abandoned: %w", cause)
}

func (p *player) printStats(ctx context.Context, username string) error {
	// Results are stored by event handlers.
	p.eb.Stop()

	st, err := p.results.Stats(ctx, username)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Session stats for %s: %d quizzes (avg %s), %d/%d puzzles solved, level %d (%d XP)\n",
		st.Username, st.QuizzesCompleted, st.QuizAverageScore, st.PuzzlesSolved, st.PuzzlesCompleted, st.Level, st.XP)
	return nil
}
