package models

// Unit is a content "nugget": the smallest unit of teachable material.
// Only public units appear in the catalog listing.
type Unit struct {
	ID          string   `firestore:"-" json:"id"`
	Title       string   `firestore:"title" json:"title"`
	Description string   `firestore:"description" json:"description"`
	Content     string   `firestore:"content" json:"content,omitempty"`
	Tags        []string `firestore:"tags" json:"tags"`
	IsPublic    bool     `firestore:"isPublic" json:"isPublic"`
}

// LessonsReferencingUnit returns the titles of lessons whose sections still
// reference the unit. A referenced unit must not be deleted.
func LessonsReferencingUnit(lessons []Lesson, unitID string) []string {
	var titles []string
	for _, lesson := range lessons {
		for _, section := range lesson.Sections {
			found := false
			for _, id := range section.ContentIDs {
				if id == unitID {
					found = true
					break
				}
			}
			if found {
				titles = append(titles, lesson.Title)
				break
			}
		}
	}
	return titles
}
