package resource

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aanand-mishra/e-learning-api/internal/config"
	"github.com/aanand-mishra/e-learning-api/internal/storage/sqldb"
	"github.com/aanand-mishra/e-learning-api/internal/types"
	"github.com/aanand-mishra/e-learning-api/internal/utils/response"
)

// newMockMux wires one handler per table onto a mux backed by sqlmock.
func newMockMux(t *testing.T, driver string) (*http.ServeMux, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gw, err := sqldb.Wrap(db, driver)
	if err != nil {
		t.Fatalf("sqldb.Wrap: %v", err)
	}

	mux := http.NewServeMux()
	courses := New[types.Course](gw, types.CourseTable, config.UpdateReplace)
	mux.HandleFunc("GET /api/courses", courses.List)
	mux.HandleFunc("GET /api/courses/{id}", courses.Get)
	mux.HandleFunc("POST /api/courses", courses.Create)
	mux.HandleFunc("PUT /api/courses/{id}", courses.Update)
	mux.HandleFunc("DELETE /api/courses/{id}", courses.Delete)

	enrollments := New[types.Enrollment](gw, types.EnrollmentTable, config.UpdateReplace)
	mux.HandleFunc("DELETE /api/enrollments/{id}", enrollments.Delete)

	return mux, mock
}

func serve(t *testing.T, mux http.Handler, method, path, body string) (int, response.Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var res response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec.Code, res
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateValidationNeverAcquires(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	code, res := serve(t, mux, http.MethodPost, "/api/courses", `{"course_name":"X"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", code)
	}
	if res.Error != "course_name and course_description are required" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	expectationsMet(t, mock)
}

func TestCreateStoreFailureRollsBack(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO courses (course_name, course_description) VALUES (?, ?)")).
		WithArgs("X", "Y").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodPost, "/api/courses",
		`{"course_name":"X","course_description":"Y"}`)
	if code != http.StatusInternalServerError || res.Success {
		t.Fatalf("got %d %+v", code, res)
	}
	if res.Error != "disk I/O error" {
		t.Fatalf("store error must be passed through verbatim, got %q", res.Error)
	}
	expectationsMet(t, mock)
}

func TestCreateCommitsAndReturnsGeneratedKey(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WithArgs("X", "Y").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	code, res := serve(t, mux, http.MethodPost, "/api/courses",
		`{"course_id":5,"course_name":"X","course_description":"Y"}`)
	if code != http.StatusCreated {
		t.Fatalf("got %d %+v", code, res)
	}

	data := res.Data.(map[string]any)
	if data["course_id"] != float64(41) {
		t.Fatalf("course_id = %v, want the generated 41", data["course_id"])
	}
	expectationsMet(t, mock)
}

func TestCreateReturningDialect(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverPostgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO courses (course_name, course_description) VALUES ($1, $2) RETURNING course_id")).
		WithArgs("X", "Y").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(7))
	mock.ExpectCommit()

	code, res := serve(t, mux, http.MethodPost, "/api/courses",
		`{"course_name":"X","course_description":"Y"}`)
	if code != http.StatusCreated {
		t.Fatalf("got %d %+v", code, res)
	}
	if id := res.Data.(map[string]any)["course_id"]; id != float64(7) {
		t.Fatalf("course_id = %v, want 7", id)
	}
	expectationsMet(t, mock)
}

func TestAcquireFailureIsServerError(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin().WillReturnError(errors.New("server has gone away"))

	code, res := serve(t, mux, http.MethodGet, "/api/courses", "")
	if code != http.StatusInternalServerError {
		t.Fatalf("got %d", code)
	}
	if res.Error != "connection error: server has gone away" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	expectationsMet(t, mock)
}

func TestListQueryFailure(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_id, course_name, course_description FROM courses")).
		WillReturnError(errors.New("no such table: courses"))
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodGet, "/api/courses", "")
	if code != http.StatusInternalServerError || res.Error != "no such table: courses" {
		t.Fatalf("got %d %+v", code, res)
	}
	expectationsMet(t, mock)
}

func TestUpdateStoreFailureRollsBack(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE courses SET course_name = ?, course_description = ? WHERE course_id = ?")).
		WithArgs("Z", nil, 3).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodPut, "/api/courses/3", `{"course_name":"Z"}`)
	if code != http.StatusInternalServerError || res.Error != "database is locked" {
		t.Fatalf("got %d %+v", code, res)
	}
	expectationsMet(t, mock)
}

func TestUpdateMissingRowRollsBack(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodPut, "/api/courses/99", `{"course_name":"Z"}`)
	if code != http.StatusNotFound || res.Error != "Course not found" {
		t.Fatalf("got %d %+v", code, res)
	}
	expectationsMet(t, mock)
}

func TestDeleteCommits(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE course_id = ?")).
		WithArgs(12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	code, res := serve(t, mux, http.MethodDelete, "/api/courses/12", "")
	if code != http.StatusOK || res.Message != "Course with ID 12 has been deleted" {
		t.Fatalf("got %d %+v", code, res)
	}
	expectationsMet(t, mock)
}

func TestRestrictedDeleteNeverWrites(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	rows := sqlmock.NewRows([]string{
		"enrollment_id", "student_id", "course_id", "enrollment_date", "completion_date",
	}).AddRow(4, 1, 2, "2024-09-01", "2025-01-31")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE enrollment_id = ?")).
		WithArgs(4).
		WillReturnRows(rows)
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodDelete, "/api/enrollments/4", "")
	if code != http.StatusForbidden {
		t.Fatalf("got %d %+v", code, res)
	}
	if res.Error != "Deletion not allowed due to foreign key constraints" {
		t.Fatalf("unexpected error %q", res.Error)
	}
	expectationsMet(t, mock)
}

func TestAssignmentsByPolicy(t *testing.T) {
	name := "Z"
	rec := &types.Course{Name: &name}
	present := map[string]json.RawMessage{"course_name": json.RawMessage(`"Z"`)}

	replace := New[types.Course](nil, types.CourseTable, config.UpdateReplace)
	cols, args := replace.assignments(rec, present)
	if len(cols) != 2 || len(args) != 2 {
		t.Fatalf("replace should write every column, got %v", cols)
	}

	patch := New[types.Course](nil, types.CourseTable, config.UpdatePatch)
	cols, args = patch.assignments(rec, present)
	if len(cols) != 1 || cols[0] != "course_name" || args[0] != rec.Name {
		t.Fatalf("patch should write only course_name, got %v %v", cols, args)
	}
}

func TestBuildQueries(t *testing.T) {
	q := buildQueries(types.TestResultTable)

	want := "INSERT INTO test_results (student_id, test_score, test_date) VALUES (?, ?, ?)"
	if q.insert != want {
		t.Fatalf("insert = %q, want %q", q.insert, want)
	}

	got := updateQuery(types.TestResultTable, []string{"test_score"})
	if got != "UPDATE test_results SET test_score = ? WHERE test_result_id = ?" {
		t.Fatalf("update = %q", got)
	}
}

func TestDeleteStoreFailureRollsBack(t *testing.T) {
	mux, mock := newMockMux(t, config.DriverSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE course_id = ?")).
		WithArgs(12).
		WillReturnError(errors.New("FOREIGN KEY constraint failed"))
	mock.ExpectRollback()

	code, res := serve(t, mux, http.MethodDelete, "/api/courses/12", "")
	if code != http.StatusInternalServerError || res.Success {
		t.Fatalf("got %d %+v", code, res)
	}
	if res.Error != "FOREIGN KEY constraint failed" {
		t.Fatalf("store error must be passed through verbatim, got %q", res.Error)
	}
	expectationsMet(t, mock)
}

func TestDecodeReadsExactKeysOnly(t *testing.T) {
	h := New[types.Course](nil, types.CourseTable, config.UpdateReplace)

	var present map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"Course_Name":"W","course_description":null}`), &present); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := h.decode(present)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != nil || got.Description != nil {
		t.Fatalf("only exact keys may be read: %+v", got)
	}

	present = map[string]json.RawMessage{"course_name": json.RawMessage(`12`)}
	if _, err := h.decode(present); err == nil {
		t.Fatal("expected a type error for a numeric course_name")
	}
}
