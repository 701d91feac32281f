// Package router maps every endpoint onto its resource handler.
package router

import (
	"net/http"

	"github.com/aanand-mishra/e-learning-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/e-learning-api/internal/http/middleware"
	"github.com/aanand-mishra/e-learning-api/internal/storage"
	"github.com/aanand-mishra/e-learning-api/internal/types"
	"github.com/aanand-mishra/e-learning-api/internal/utils/response"
)

// crud is the method set shared by every resource.Handler instantiation.
type crud interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

// New builds the full route table:
//
//	GET    /api/{table}        → list
//	GET    /api/{table}/{id}   → get one
//	POST   /api/{table}        → create
//	PUT    /api/{table}/{id}   → update
//	DELETE /api/{table}/{id}   → delete (403 for enrollments and test_results)
//
// for courses, students, enrollments and test_results.
func New(gw storage.Gateway, updatePolicy string) http.Handler {
	mux := http.NewServeMux()

	mount(mux, "/api/courses",
		resource.New[types.Course](gw, types.CourseTable, updatePolicy))
	mount(mux, "/api/students",
		resource.New[types.Student](gw, types.StudentTable, updatePolicy))
	mount(mux, "/api/enrollments",
		resource.New[types.Enrollment](gw, types.EnrollmentTable, updatePolicy))
	mount(mux, "/api/test_results",
		resource.New[types.TestResult](gw, types.TestResultTable, updatePolicy))

	// Anything no route above matches, including a known path with the
	// wrong method, gets the JSON 404 envelope instead of the mux's
	// plain-text reply.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, response.NotFoundError("Resource"))
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
}

func mount(mux *http.ServeMux, prefix string, h crud) {
	mux.HandleFunc("GET "+prefix, h.List)
	mux.HandleFunc("GET "+prefix+"/{id}", h.Get)
	mux.HandleFunc("POST "+prefix, h.Create)
	mux.HandleFunc("PUT "+prefix+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", h.Delete)
}
