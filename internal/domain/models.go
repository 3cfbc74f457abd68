package domain

import "time"

// QuestionType distinguishes option-based questions from free-text ones.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionShortAnswer QuestionType = "short_answer"
)

// Difficulty is informational only; scoring never reads it.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Source records where a question came from.
type Source string

const (
	SourceCustom  Source = "custom"
	SourceOpenTDB Source = "opentdb"
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ResultStatus tags a stored result. Only StatusCompleted is produced today;
// partial and expired are reserved.
type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusPartial   ResultStatus = "partial"
	StatusExpired   ResultStatus = "expired"
)

// TestStatus is derived from a test's window relative to a reference time.
type TestStatus string

const (
	TestUpcoming  TestStatus = "upcoming"
	TestOngoing   TestStatus = "ongoing"
	TestCompleted TestStatus = "completed"
)

// Option is a selectable answer of an MCQ question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is an item of the question bank.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	Marks         int          `json:"marks"`
	Difficulty    Difficulty   `json:"difficulty"`
	Subject       string       `json:"subject"`
	Class         int          `json:"class"`
	Topic         string       `json:"topic"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	Source        Source       `json:"source"`
	CreatedBy     string       `json:"createdBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastModified  time.Time    `json:"lastModified"`
}

// Test is a scheduled paper. QuestionIDs is the stored form; Questions is
// populated when the test is resolved for scoring or display.
type Test struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Class       int        `json:"class"`
	Topics      []string   `json:"topics"`
	QuestionIDs []string   `json:"questionIds"`
	Questions   []Question `json:"questions,omitempty"`
	AssignedTo  []string   `json:"assignedTo"`
	Duration    int        `json:"duration"` // minutes
	TotalMarks  int        `json:"totalMarks"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
}

// StatusAt reports where now falls relative to the test window.
func (t Test) StatusAt(now time.Time) TestStatus {
	switch {
	case now.Before(t.StartTime):
		return TestUpcoming
	case now.After(t.EndTime):
		return TestCompleted
	default:
		return TestOngoing
	}
}

// IsAssigned reports whether userID may take the test.
func (t Test) IsAssigned(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// HasQuestion reports whether questionID is part of the test.
func (t Test) HasQuestion(questionID string) bool {
	for _, id := range t.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// Response is a single answer sent by a student. An empty Answer means unanswered.
type Response struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// ScoredResponse is a response annotated with correctness and marks.
type ScoredResponse struct {
	QuestionID     string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	MarksObtained  int    `json:"marksObtained"`
}

// ChapterAnalysis is the per-topic rollup of a result.
type ChapterAnalysis struct {
	Topic           string  `json:"topic"`
	TotalQuestions  int     `json:"totalQuestions"`
	CorrectAnswers  int     `json:"correctAnswers"`
	PercentageScore float64 `json:"percentageScore"`
}

// Feedback classifies topics into strengths and weaknesses.
type Feedback struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Result is written once per submission and never mutated afterwards.
type Result struct {
	ID                  string            `json:"id"`
	StudentID           string            `json:"student"`
	TestID              string            `json:"test"`
	Responses           []ScoredResponse  `json:"responses"`
	TotalScore          int               `json:"totalScore"`
	PercentageScore     float64           `json:"percentageScore"`
	TimeTaken           int               `json:"timeTaken"` // minutes
	SubmittedAt         time.Time         `json:"submittedAt"`
	ChapterWiseAnalysis []ChapterAnalysis `json:"chapterWiseAnalysis"`
	Status              ResultStatus      `json:"status"`
	Feedback            Feedback          `json:"feedback"`
}

// PerformanceMetrics are derived on read from a stored result.
type PerformanceMetrics struct {
	Accuracy        float64 `json:"accuracy"`
	TimePerQuestion int     `json:"timePerQuestion"`
	CompletionRate  float64 `json:"completionRate"`
}

// User is an account of the platform.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Class        int       `json:"class,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TopicAverage is one row of class analytics.
type TopicAverage struct {
	Subject       string  `json:"subject"`
	Topic         string  `json:"topic"`
	AverageScore  float64 `json:"averageScore"`
	TotalStudents int     `json:"totalStudents"`
}

// ClassAnalytics summarises results matching an analytics query.
type ClassAnalytics struct {
	TotalResults  int            `json:"totalResults"`
	AverageScore  float64        `json:"averageScore"`
	TopicAverages []TopicAverage `json:"topicAverages"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

// TestSnapshot is the live view pushed to feed subscribers of a test.
type TestSnapshot struct {
	TestID        string         `json:"testId"`
	Submissions   int            `json:"submissions"`
	AverageScore  float64        `json:"averageScore"`
	TopicAverages []TopicAverage `json:"topicAverages"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
