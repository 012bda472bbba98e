package model

import "time"

// Deck is a titled, sluggable collection of ordered cards.
//
// INVARIANTS:
//   - Slug is globally unique and immutable once assigned. Renaming a deck
//     never changes its slug — shared study links must keep working.
//   - TeacherID always equals the owning subject's TeacherID. It is
//     denormalized onto the deck so ownership checks don't need a join, but
//     it is written by exactly one code path (deck creation), which copies
//     it from the resolved subject. It is never settable independently.
//
// A deck has no workflow state beyond IsPublic, which the owner can toggle
// freely at any time.
type Deck struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	SubjectID   string    `json:"subjectId"`
	TeacherID   string    `json:"teacherId"`
	ExamBoard   string    `json:"examBoard"`   // optional metadata, e.g. "AQA"
	YearGroup   string    `json:"yearGroup"`   // optional metadata, e.g. "Year 10"
	TargetGrade string    `json:"targetGrade"` // optional metadata, e.g. "7-9"
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
