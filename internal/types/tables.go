package types

// Record is implemented by a pointer to each entity struct. Fields and
// Values must list the non-key columns in the same order as Table.Columns.
type Record[T any] interface {
	*T

	// Key returns the address of the primary key field.
	Key() *int64

	// Fields returns scan destinations, one per column.
	Fields() []any

	// Values returns statement arguments, one per column. Nil pointers
	// are bound as NULL by database/sql.
	Values() []any
}

// Table describes how one entity is stored and how it is talked about in
// responses.
type Table struct {
	Name       string   // SQL table name
	Entity     string   // e.g. "Course", used in "Course not found"
	PrimaryKey string   // store-generated integer key column
	Columns    []string // non-key columns; names match the JSON keys

	// RequiredMessage is returned verbatim when a create payload is
	// missing any required column.
	RequiredMessage string

	// AllowDelete is false for tables other rows depend on. Deleting from
	// them is always refused with 403, whether or not anything references
	// the row.
	AllowDelete bool
}

var (
	CourseTable = Table{
		Name:            "courses",
		Entity:          "Course",
		PrimaryKey:      "course_id",
		Columns:         []string{"course_name", "course_description"},
		RequiredMessage: "course_name and course_description are required",
		AllowDelete:     true,
	}

	StudentTable = Table{
		Name:       "students",
		Entity:     "Student",
		PrimaryKey: "student_id",
		Columns: []string{
			"student_firstName", "student_lastName", "student_email", "student_password",
		},
		RequiredMessage: "student_firstName, student_lastName, and student_password are required",
		AllowDelete:     true,
	}

	EnrollmentTable = Table{
		Name:       "enrollments",
		Entity:     "Enrollment",
		PrimaryKey: "enrollment_id",
		Columns: []string{
			"student_id", "course_id", "enrollment_date", "completion_date",
		},
		RequiredMessage: "student_id, course_id, enrollment_date, and completion_date are required",
		AllowDelete:     false,
	}

	TestResultTable = Table{
		Name:            "test_results",
		Entity:          "Test result",
		PrimaryKey:      "test_result_id",
		Columns:         []string{"student_id", "test_score", "test_date"},
		RequiredMessage: "student_id, test_score, and test_date are required",
		AllowDelete:     false,
	}
)

// Tables lists every descriptor in dependency order: referenced tables
// come before the tables that reference them.
var Tables = []Table{CourseTable, StudentTable, EnrollmentTable, TestResultTable}
