package models

import "time"

const (
	RoleConsumer          = "consumer"
	RoleTeacherDefault    = "teacherDefault"
	RoleTeacherPlus       = "teacherPlus"
	RoleTeacherEnterprise = "teacherEnterprise"
	RoleAdmin             = "admin"
)

// Subscription plans and lifecycle states carried on the user document.
const (
	PlanBasic = "basic"

	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// User is a portal profile document keyed by the Firebase auth UID.
type User struct {
	Email    string `firestore:"email" json:"email"`
	FullName string `firestore:"fullName" json:"fullName"`
	Role     string `firestore:"role" json:"role"`

	SubscriptionType      string     `firestore:"subscriptionType" json:"subscriptionType,omitempty"`
	SubscriptionStatus    string     `firestore:"subscriptionStatus" json:"subscriptionStatus,omitempty"`
	SubscriptionStartDate *time.Time `firestore:"subscriptionStartDate" json:"subscriptionStartDate,omitempty"`
	SubscriptionEndDate   *time.Time `firestore:"subscriptionEndDate" json:"subscriptionEndDate,omitempty"`
}

// TeacherRoles lists every role allowed to author content.
func TeacherRoles() []string {
	return []string{RoleTeacherDefault, RoleTeacherPlus, RoleTeacherEnterprise}
}

// PremiumTeacherRoles lists the paid teacher tiers.
func PremiumTeacherRoles() []string {
	return []string{RoleTeacherPlus, RoleTeacherEnterprise}
}
