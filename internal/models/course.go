package models

import "time"

// UnitType distinguishes the kinds of catalog units a student works through.
type UnitType string

const (
	// UnitTypeLab marks a weekly lab exercise.
	UnitTypeLab UnitType = "Lab"
	// UnitTypeAssignment marks a graded assignment.
	UnitTypeAssignment UnitType = "Assignment"
)

// CourseImage carries the banner shown on course cards.
type CourseImage struct {
	ID   string `json:"id" yaml:"id"`
	URL  string `json:"url" yaml:"url"`
	Hint string `json:"hint" yaml:"hint"`
}

// Course is a catalog entry. Labs and assignments carry no per-student state.
type Course struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	Instructor string      `json:"instructor"`
	WebsiteURL string      `json:"website_url"`
	Image      CourseImage `json:"image"`
	Grade      int         `json:"grade"`
	Weeks      int         `json:"weeks"`
	TotalWeeks int         `json:"total_weeks"`
	Color      string      `json:"color"`
	Initials   string      `json:"initials"`

	// Planned unit counts for the whole term. Nil means unset, in which case
	// the released counts are used instead.
	TotalLabs        *int `json:"total_labs,omitempty"`
	TotalAssignments *int `json:"total_assignments,omitempty"`
	TotalExams       *int `json:"total_exams,omitempty"`

	Labs          []LabUnit        `json:"labs"`
	Assignments   []AssignmentUnit `json:"assignments"`
	Announcements []Announcement   `json:"announcements"`
}

// LabUnit is a released lab.
type LabUnit struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// AssignmentUnit is a released assignment.
type AssignmentUnit struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// Announcement is a course-wide notice.
type Announcement struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Date     time.Time `json:"date"`
}

// PlannedLabs returns the configured lab total, falling back to the released count.
func (c Course) PlannedLabs() int {
	if c.TotalLabs != nil {
		return *c.TotalLabs
	}
	return len(c.Labs)
}

// PlannedAssignments returns the configured assignment total, falling back to the released count.
func (c Course) PlannedAssignments() int {
	if c.TotalAssignments != nil {
		return *c.TotalAssignments
	}
	return len(c.Assignments)
}

// PlannedUnits is the progress denominator for the course.
func (c Course) PlannedUnits() int {
	return c.PlannedLabs() + c.PlannedAssignments()
}

// HasUnit reports whether the lab or assignment id belongs to this course.
func (c Course) HasUnit(unitID string) bool {
	for _, lab := range c.Labs {
		if lab.ID == unitID {
			return true
		}
	}
	for _, assignment := range c.Assignments {
		if assignment.ID == unitID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Course) Clone() Course {
	out := c
	out.TotalLabs = cloneInt(c.TotalLabs)
	out.TotalAssignments = cloneInt(c.TotalAssignments)
	out.TotalExams = cloneInt(c.TotalExams)
	out.Labs = append([]LabUnit(nil), c.Labs...)
	out.Assignments = append([]AssignmentUnit(nil), c.Assignments...)
	out.Announcements = append([]Announcement(nil), c.Announcements...)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}
