// Package types holds the four records served by the API and the table
// descriptors that tell the generic resource handler how each one is stored.
// Keeping them in one place prevents import cycles: handlers, storage, and
// utils can all import types without depending on each other.
//
// Every column is a pointer. A nil pointer is SQL NULL on the way in and
// JSON null on the way out, and it lets the validator tell "absent" apart
// from a legitimate zero such as a test score of 0.
package types

// Course is a row of the courses table.
type Course struct {
	ID          int64   `json:"course_id"`
	Name        *string `json:"course_name" validate:"required,min=1"`
	Description *string `json:"course_description" validate:"required"`
}

func (c *Course) Key() *int64 { return &c.ID }
func (c *Course) Fields() []any { return []any{&c.Name, &c.Description} }
func (c *Course) Values() []any { return []any{c.Name, c.Description} }

// Student is a row of the students table. Password is stored as given.
type Student struct {
	ID        int64   `json:"student_id"`
	FirstName *string `json:"student_firstName" validate:"required"`
	LastName  *string `json:"student_lastName" validate:"required"`
	Email     *string `json:"student_email"`
	Password  *string `json:"student_password" validate:"required"`
}

func (s *Student) Key() *int64 { return &s.ID }

func (s *Student) Fields() []any {
	return []any{&s.FirstName, &s.LastName, &s.Email, &s.Password}
}

func (s *Student) Values() []any {
	return []any{s.FirstName, s.LastName, s.Email, s.Password}
}

// Enrollment links a student to a course. Dates are kept as the strings
// the client sent, e.g. "2024-09-01".
type Enrollment struct {
	ID             int64   `json:"enrollment_id"`
	StudentID      *int64  `json:"student_id" validate:"required"`
	CourseID       *int64  `json:"course_id" validate:"required"`
	EnrollmentDate *string `json:"enrollment_date" validate:"required"`
	CompletionDate *string `json:"completion_date" validate:"required"`
}

func (e *Enrollment) Key() *int64 { return &e.ID }

func (e *Enrollment) Fields() []any {
	return []any{&e.StudentID, &e.CourseID, &e.EnrollmentDate, &e.CompletionDate}
}

func (e *Enrollment) Values() []any {
	return []any{e.StudentID, e.CourseID, e.EnrollmentDate, e.CompletionDate}
}

// TestResult is a single scored test taken by a student.
type TestResult struct {
	ID        int64    `json:"test_result_id"`
	StudentID *int64   `json:"student_id" validate:"required"`
	TestScore *float64 `json:"test_score" validate:"required"`
	TestDate  *string  `json:"test_date" validate:"required"`
}

func (t *TestResult) Key() *int64 { return &t.ID }

func (t *TestResult) Fields() []any {
	return []any{&t.StudentID, &t.TestScore, &t.TestDate}
}

func (t *TestResult) Values() []any {
	return []any{t.StudentID, t.TestScore, t.TestDate}
}
