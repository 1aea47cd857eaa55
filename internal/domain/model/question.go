package model

import "time"

// QuestionKind tags what a question is attached to.
type QuestionKind string

type QuestionStatus string

const (
	// KindConference questions are the "requests" raised about a whole conference.
	KindConference QuestionKind = "conference"
	KindArticle    QuestionKind = "article"

	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
)

func (k QuestionKind) Valid() bool {
	return k == KindConference || k == KindArticle
}

// Question is a user inquiry about a conference or an article.
// Answer is non-nil exactly when Status is QuestionAnswered.
type Question struct {
	ID         int64          `json:"id"`
	Kind       QuestionKind   `json:"kind"`
	TargetID   int64          `json:"target_id"`
	UserID     int64          `json:"user_id"`
	Question   string         `json:"question"`
	Answer     *string        `json:"answer"`
	Status     QuestionStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	AnsweredAt *time.Time     `json:"answered_at,omitempty"`
}

func (q *Question) IsAnswered() bool {
	return q.Status == QuestionAnswered
}
