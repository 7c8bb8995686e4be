package models

// Module is a learning module: a purchasable bundle of lesson plans.
// Price is in decimal currency units (dollars); a module with a missing or
// non-positive price is not purchasable.
type Module struct {
	ID          string   `firestore:"-" json:"id"`
	Title       string   `firestore:"title" json:"title"`
	Description string   `firestore:"description" json:"description"`
	Tags        []string `firestore:"tags" json:"tags"`
	LessonPlans []string `firestore:"lessonPlans" json:"lessonPlans"`
	Image       string   `firestore:"image" json:"image,omitempty"`
	Price       float64  `firestore:"price" json:"price,omitempty"`
}
