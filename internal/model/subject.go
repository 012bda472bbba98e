package model

import "time"

// Subject is a named grouping of decks scoped to one teacher.
// The (Name, TeacherID) pair is unique — two teachers can both have a
// "Biology" subject, one teacher cannot have it twice.
//
// Subjects are usually created implicitly: the first deck a teacher files
// under a new subject name creates the subject (get-or-create).
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
}
