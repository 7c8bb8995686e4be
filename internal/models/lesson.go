package models

// LessonSection groups content units inside a lesson plan.
type LessonSection struct {
	Title      string   `firestore:"title" json:"title"`
	ContentIDs []string `firestore:"contentIds" json:"contentIds"`
}

// Lesson is a lesson plan document.
type Lesson struct {
	ID          string          `firestore:"-" json:"id"`
	Title       string          `firestore:"title" json:"title"`
	Subject     string          `firestore:"subject" json:"subject"`
	Level       string          `firestore:"level" json:"level"`
	Objectives  []string        `firestore:"objectives" json:"objectives"`
	Duration    string          `firestore:"duration" json:"duration"`
	Sections    []LessonSection `firestore:"sections" json:"sections"`
	Description string          `firestore:"description" json:"description"`
}
