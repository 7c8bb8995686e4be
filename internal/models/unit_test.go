package models

import (
	"reflect"
	"testing"
)

func TestLessonsReferencingUnit(t *testing.T) {
	lessons := []Lesson{
		{
			Title: "Fractions Week 1",
			Sections: []LessonSection{
				{Title: "Warmup", ContentIDs: []string{"unit-a", "unit-b"}},
			},
		},
		{
			Title: "Fractions Week 2",
			Sections: []LessonSection{
				{Title: "Warmup", ContentIDs: []string{"unit-c"}},
				{Title: "Core", ContentIDs: []string{"unit-a", "unit-a"}},
			},
		},
		{
			Title:    "Geometry Intro",
			Sections: []LessonSection{{Title: "Core", ContentIDs: []string{"unit-d"}}},
		},
	}

	tests := []struct {
		name     string
		lessons  []Lesson
		unitID   string
		expected []string
	}{
		{"unit in several lessons, each listed once", lessons, "unit-a", []string{"Fractions Week 1", "Fractions Week 2"}},
		{"unit in one lesson", lessons, "unit-c", []string{"Fractions Week 2"}},
		{"unreferenced unit", lessons, "unit-x", nil},
		{"no lessons at all", nil, "unit-a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LessonsReferencingUnit(tt.lessons, tt.unitID)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("LessonsReferencingUnit(%q) = %v; want %v", tt.unitID, got, tt.expected)
			}
		})
	}
}
