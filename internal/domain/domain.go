package domain

import (
	"time"
)

// DefaultQuestionTimeLimit applies to questions without their own limit.
const DefaultQuestionTimeLimit = 60

// NoAnswer is the selected index recorded when a question timed out.
const NoAnswer = -1

type QuizCategory string

const (
	CategoryTechnology    QuizCategory = "Technology"
	CategoryScience       QuizCategory = "Science"
	CategoryHistory       QuizCategory = "History"
	CategoryGeography     QuizCategory = "Geography"
	CategoryEntertainment QuizCategory = "Entertainment"
	CategorySports        QuizCategory = "Sports"
	CategoryArt           QuizCategory = "Art"
	CategoryLiterature    QuizCategory = "Literature"
	CategoryMathematics   QuizCategory = "Mathematics"
	CategoryFuturistic    QuizCategory = "Futuristic"
	CategoryUserGenerated QuizCategory = "User Generated"
)

var QuizCategories = []QuizCategory{
	CategoryTechnology, CategoryScience, CategoryHistory, CategoryGeography, CategoryEntertainment,
	CategorySports, CategoryArt, CategoryLiterature, CategoryMathematics, CategoryFuturistic,
	CategoryUserGenerated,
}

type QuizDifficulty string

const (
	QuizEasy   QuizDifficulty = "Easy"
	QuizMedium QuizDifficulty = "Medium"
	QuizHard   QuizDifficulty = "Hard"
	QuizExpert QuizDifficulty = "Expert"
)

var quizPoints = map[QuizDifficulty]int{
	QuizEasy:   10,
	QuizMedium: 20,
	QuizHard:   30,
	QuizExpert: 50,
}

// Points is the fixed value of every correctly answered question.
func (d QuizDifficulty) Points() int {
	return quizPoints[d]
}

func (d QuizDifficulty) Valid() bool {
	_, ok := quizPoints[d]
	return ok
}

// QuizDefinition is immutable once it has been added to the content repository.
type QuizDefinition struct {
	ID            string         `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description" yaml:"description"`
	Category      QuizCategory   `json:"category" yaml:"category"`
	Difficulty    QuizDifficulty `json:"difficulty" yaml:"difficulty"`
	Questions     []Question     `json:"questions" yaml:"questions"`
	EstimatedTime int            `json:"estimated_time" yaml:"estimated_time"` // minutes
	UserGenerated bool           `json:"user_generated" yaml:"user_generated"`
	CreatedBy     string         `json:"created_by,omitempty" yaml:"created_by"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
}

type Question struct {
	ID           string   `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_index" yaml:"correct_index"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation"`
	TimeLimit    int      `json:"time_limit,omitempty" yaml:"time_limit"` // seconds, 0 means default
}

// Limit returns the question's countdown in seconds.
func (q Question) Limit() int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return DefaultQuestionTimeLimit
}

func (q Question) IsCorrect(index int) bool {
	return index == q.CorrectIndex
}

type PuzzleType string

const (
	PuzzleLogic        PuzzleType = "Logic"
	PuzzleWord         PuzzleType = "Word Puzzle"
	PuzzleMath         PuzzleType = "Math Puzzle"
	PuzzlePattern      PuzzleType = "Pattern"
	PuzzleRiddle       PuzzleType = "Riddle"
	PuzzleCodeBreaking PuzzleType = "Code Breaking"
	PuzzleSpatial      PuzzleType = "Spatial"
	PuzzleMemory       PuzzleType = "Memory"
)

var PuzzleTypes = []PuzzleType{
	PuzzleLogic, PuzzleWord, PuzzleMath, PuzzlePattern, PuzzleRiddle, PuzzleCodeBreaking, PuzzleSpatial, PuzzleMemory,
}

var puzzleExtraMinutes = map[PuzzleType]int{
	PuzzleLogic:        5,
	PuzzleWord:         3,
	PuzzleMath:         7,
	PuzzlePattern:      4,
	PuzzleRiddle:       2,
	PuzzleCodeBreaking: 10,
	PuzzleSpatial:      6,
	PuzzleMemory:       1,
}

// AdditionalTime is added to the difficulty base time when estimating a puzzle, in minutes.
func (t PuzzleType) AdditionalTime() int {
	return puzzleExtraMinutes[t]
}

func (t PuzzleType) Valid() bool {
	_, ok := puzzleExtraMinutes[t]
	return ok
}

type PuzzleDifficulty string

const (
	PuzzleBeginner     PuzzleDifficulty = "Beginner"
	PuzzleIntermediate PuzzleDifficulty = "Intermediate"
	PuzzleAdvanced     PuzzleDifficulty = "Advanced"
	PuzzleMaster       PuzzleDifficulty = "Master"
)

type puzzleLevel struct {
	baseTime   int
	basePoints int
	maxHints   int
}

var puzzleLevels = map[PuzzleDifficulty]puzzleLevel{
	PuzzleBeginner:     {baseTime: 5, basePoints: 25, maxHints: 3},
	PuzzleIntermediate: {baseTime: 10, basePoints: 50, maxHints: 2},
	PuzzleAdvanced:     {baseTime: 15, basePoints: 100, maxHints: 1},
	PuzzleMaster:       {baseTime: 20, basePoints: 200, maxHints: 0},
}

// BaseTime in minutes.
func (d PuzzleDifficulty) BaseTime() int   { return puzzleLevels[d].baseTime }
func (d PuzzleDifficulty) BasePoints() int { return puzzleLevels[d].basePoints }
func (d PuzzleDifficulty) MaxHints() int   { return puzzleLevels[d].maxHints }

func (d PuzzleDifficulty) Valid() bool {
	_, ok := puzzleLevels[d]
	return ok
}

type PuzzleContent struct {
	Main  string            `json:"main" yaml:"main"`
	Extra map[string]string `json:"extra,omitempty" yaml:"extra"`
}

// PuzzleDefinition is immutable once it has been added to the content repository.
type PuzzleDefinition struct {
	ID            string           `json:"id" yaml:"id"`
	Title         string           `json:"title" yaml:"title"`
	Description   string           `json:"description" yaml:"description"`
	Type          PuzzleType       `json:"type" yaml:"type"`
	Difficulty    PuzzleDifficulty `json:"difficulty" yaml:"difficulty"`
	Content       PuzzleContent    `json:"content" yaml:"content"`
	Solution      string           `json:"-" yaml:"solution"`
	Hints         []string         `json:"-" yaml:"hints"`
	TimeLimit     int              `json:"time_limit,omitempty" yaml:"time_limit"` // minutes, 0 means untimed
	Points        int              `json:"points" yaml:"points"`
	UserGenerated bool             `json:"user_generated" yaml:"user_generated"`
	CreatedBy     string           `json:"created_by,omitempty" yaml:"created_by"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
}

// EstimatedTime in minutes.
func (p PuzzleDefinition) EstimatedTime() int {
	if p.TimeLimit > 0 {
		return p.TimeLimit
	}
	return p.Difficulty.BaseTime() + p.Type.AdditionalTime()
}

// Answer is one recorded response to a quiz question.
type Answer struct {
	QuestionID    string        `json:"question_id"`
	SelectedIndex int           `json:"selected_index"`
	Correct       bool          `json:"correct"`
	TimeSpent     time.Duration `json:"time_spent"`
}

// QuizResult is the immutable outcome of one completed quiz session.
type QuizResult struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"session_id"`
	Username       string        `json:"username"`
	QuizID         string        `json:"quiz_id"`
	Score          int           `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	CorrectAnswers int           `json:"correct_answers"`
	TimeSpent      time.Duration `json:"time_spent"`
	CompletedAt    time.Time     `json:"completed_at"`
	Answers        []Answer      `json:"answers"`
}

// PuzzleResult is the immutable outcome of one completed puzzle session.
type PuzzleResult struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id"`
	Username    string        `json:"username"`
	PuzzleID    string        `json:"puzzle_id"`
	BasePoints  int           `json:"base_points"`
	Completed   bool          `json:"completed"`
	Solved      bool          `json:"solved"`
	TimeSpent   time.Duration `json:"time_spent"`
	HintsUsed   int           `json:"hints_used"`
	Attempts    int           `json:"attempts"`
	CompletedAt time.Time     `json:"completed_at"`
	FinalAnswer string        `json:"final_answer"`
}

type Grade string

const (
	GradeExcellent    Grade = "excellent"
	GradeGood         Grade = "good"
	GradeAverage      Grade = "average"
	GradeBelowAverage Grade = "belowAverage"
	GradePoor         Grade = "poor"
)

type Performance string

const (
	PerformanceExcellent    Performance = "excellent"
	PerformanceGood         Performance = "good"
	PerformanceAverage      Performance = "average"
	PerformanceBelowAverage Performance = "belowAverage"
	PerformancePoor         Performance = "poor"
	PerformanceFailed       Performance = "failed"
)

// Score is a user's best score on a single leaderboard.
type Score struct {
	Board      string
	Username   string
	Score      int
	UpdateTime time.Time
}

// Leaderboard represents a list of users and their best scores on a quiz or puzzle.
// The list is sorted by score in descending order.
type Leaderboard struct {
	Board   string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username string
	Score    float64
}

// QuizBoard and PuzzleBoard name the leaderboard of a content item.
func QuizBoard(quizID string) string     { return "quiz:" + quizID }
func PuzzleBoard(puzzleID string) string { return "puzzle:" + puzzleID }
