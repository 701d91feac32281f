// Package resource contains the HTTP handlers shared by every entity.
//
// Each entity (courses, students, enrollments, test results) exposes the
// same five operations against one table. Instead of four copies of the
// same code, a Handler is parameterized by the record type and a
// types.Table descriptor:
//
//	courses := resource.New[types.Course](gw, types.CourseTable, config.UpdateReplace)
//	router.HandleFunc("GET /api/courses/{id}", courses.Get)
//
// Every operation follows the same shape: validate input without touching
// the store, acquire a connection, run one unit of work, release the
// connection on every exit path, and answer with a response.Response.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/e-learning-api/internal/config"
	"github.com/aanand-mishra/e-learning-api/internal/storage"
	"github.com/aanand-mishra/e-learning-api/internal/types"
	"github.com/aanand-mishra/e-learning-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies read by Create and Update.
const maxBodyBytes = 1 << 20

const (
	msgNoData       = "No data provided"
	msgDeleteDenied = "Deletion not allowed due to foreign key constraints"
)

// Handler serves one table.
type Handler[T any, P types.Record[T]] struct {
	gw       storage.Gateway
	table    types.Table
	policy   string
	queries  queries
	validate *validator.Validate
}

// New builds the handler for table. policy is config.UpdateReplace or
// config.UpdatePatch and only affects Update.
func New[T any, P types.Record[T]](gw storage.Gateway, table types.Table, policy string) *Handler[T, P] {
	return &Handler[T, P]{
		gw:       gw,
		table:    table,
		policy:   policy,
		queries:  buildQueries(table),
		validate: validator.New(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/<table>
//
//	200 { "success": true, "data": [...], "total": N }
//	500 { "success": false, "error": "<store error>" }
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	slog.Info("listing records", slog.String("table", h.table.Name))

	items, err := h.list(r.Context())
	if err != nil {
		h.fail(w, "list", err)
		return
	}

	response.WriteJSON(w, http.StatusOK, response.List(items))
}

// ─────────────────────────────────────────────────────────────────────────────
// Get handles GET /api/<table>/{id}
//
//	200 { "success": true, "data": {...} }
//	404 { "success": false, "error": "<Entity> not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	slog.Info("getting a record",
		slog.String("table", h.table.Name),
		slog.String("id", r.PathValue("id")))
	if !ok {
		h.fail(w, "get", response.NotFoundError(h.table.Entity))
		return
	}

	item, err := h.get(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}

	response.WriteJSON(w, http.StatusOK, response.OK(item))
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /api/<table>
//
// Every required column must be present under its exact key, otherwise
// the table's "... are required" message comes back with 400 and the
// store is never touched. Keys are case-sensitive: "COURSE_NAME" does not
// count as "course_name". Unknown keys and any client-sent primary key
// are ignored.
//
// On success the full typed record is returned with 201: the generated
// key plus every column, so an omitted optional column (e.g.
// student_email) is echoed as null rather than left out.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	slog.Info("creating a record", slog.String("table", h.table.Name))

	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, "create", response.ValidationError(err.Error()))
		return
	}
	if len(body) == 0 {
		h.fail(w, "create", response.ValidationError(h.table.RequiredMessage))
		return
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		h.fail(w, "create", response.ValidationError(err.Error()))
		return
	}

	item, err := h.decode(present)
	if err != nil {
		h.fail(w, "create", response.ValidationError(err.Error()))
		return
	}

	rec := P(&item)
	if err := h.validate.Struct(rec); err != nil {
		h.fail(w, "create", response.ValidationError(h.table.RequiredMessage))
		return
	}

	id, err := h.insert(r.Context(), rec)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	*rec.Key() = id

	slog.Info("record created",
		slog.String("table", h.table.Name),
		slog.Int64("id", id))

	response.WriteJSON(w, http.StatusCreated, response.OK(rec))
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/<table>/{id}
//
// The body must be a non-empty JSON object. Columns are not validated one
// by one, and only keys spelling a column exactly count as present. With the replace policy every column is written and the ones
// missing from the body become NULL; with the patch policy only the keys
// present in the body are written (an explicit null still writes NULL).
//
//	200 { "success": true, "message": "<Entity> updated successfully" }
//	400 { "success": false, "error": "No data provided" }
//	404 { "success": false, "error": "<Entity> not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	slog.Info("updating a record",
		slog.String("table", h.table.Name),
		slog.String("id", r.PathValue("id")))
	if !ok {
		h.fail(w, "update", response.NotFoundError(h.table.Entity))
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, "update", response.ValidationError(err.Error()))
		return
	}
	if len(body) == 0 {
		h.fail(w, "update", response.ValidationError(msgNoData))
		return
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		h.fail(w, "update", response.ValidationError(err.Error()))
		return
	}
	if len(present) == 0 {
		h.fail(w, "update", response.ValidationError(msgNoData))
		return
	}

	item, err := h.decode(present)
	if err != nil {
		h.fail(w, "update", response.ValidationError(err.Error()))
		return
	}

	columns, args := h.assignments(P(&item), present)
	if len(columns) == 0 {
		h.fail(w, "update", response.ValidationError(msgNoData))
		return
	}

	if err := h.update(r.Context(), id, columns, args); err != nil {
		h.fail(w, "update", err)
		return
	}

	slog.Info("record updated",
		slog.String("table", h.table.Name),
		slog.Int64("id", id))

	response.WriteJSON(w, http.StatusOK,
		response.Message(h.table.Entity+" updated successfully"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/<table>/{id}
//
// Tables with AllowDelete remove the row. The others only check that the
// row exists and then always refuse with 403; nothing is ever removed.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	slog.Info("deleting a record",
		slog.String("table", h.table.Name),
		slog.String("id", r.PathValue("id")))
	if !ok {
		h.fail(w, "delete", response.NotFoundError(h.table.Entity))
		return
	}

	if !h.table.AllowDelete {
		if _, err := h.get(r.Context(), id); err != nil {
			h.fail(w, "delete", err)
			return
		}
		h.fail(w, "delete", response.PolicyRefusal(msgDeleteDenied))
		return
	}

	if err := h.remove(r.Context(), id); err != nil {
		h.fail(w, "delete", err)
		return
	}

	slog.Info("record deleted",
		slog.String("table", h.table.Name),
		slog.Int64("id", id))

	response.WriteJSON(w, http.StatusOK,
		response.Message(fmt.Sprintf("%s with ID %d has been deleted", h.table.Entity, id)))
}

// fail writes the error envelope. Store failures are logged; client
// errors are not.
func (h *Handler[T, P]) fail(w http.ResponseWriter, op string, err error) {
	var httpErr *response.HTTPError
	if !errors.As(err, &httpErr) {
		slog.Error("store failure",
			slog.String("table", h.table.Name),
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
	response.WriteError(w, err)
}

// decode fills a record from the body's keys. Only keys that spell a
// column exactly are read, so presence here and in assignments always
// agree; encoding/json's case-insensitive field matching never applies.
func (h *Handler[T, P]) decode(present map[string]json.RawMessage) (T, error) {
	var item T
	fields := P(&item).Fields()

	for i, c := range h.table.Columns {
		raw, ok := present[c]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, fields[i]); err != nil {
			return item, fmt.Errorf("%s: %w", c, err)
		}
	}

	return item, nil
}

// assignments picks the columns an update writes, with their arguments in
// the same order.
func (h *Handler[T, P]) assignments(rec P, present map[string]json.RawMessage) ([]string, []any) {
	values := rec.Values()
	if h.policy != config.UpdatePatch {
		return h.table.Columns, values
	}

	var columns []string
	var args []any
	for i, c := range h.table.Columns {
		if _, ok := present[c]; ok {
			columns = append(columns, c)
			args = append(args, values[i])
		}
	}
	return columns, args
}

// pathID parses the {id} segment. Anything that is not a positive integer
// cannot name a row.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// readBody returns the request body with surrounding whitespace removed.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(body), nil
}

// scanTargets lists the key followed by the columns, matching the SELECT
// order built by buildQueries.
func scanTargets[T any, P types.Record[T]](item *T) []any {
	rec := P(item)
	return append([]any{rec.Key()}, rec.Fields()...)
}

// rollback undoes the current unit of work. A failing rollback is logged
// but never replaces the error that caused it.
func rollback(conn storage.Conn, table string) {
	if err := conn.Rollback(); err != nil {
		slog.Error("rollback failed",
			slog.String("table", table),
			slog.String("error", err.Error()))
	}
}

// ── data access ─────────────────────────────────────────────────────────────

func (h *Handler[T, P]) list(ctx context.Context) ([]T, error) {
	conn, err := h.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, h.queries.list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Empty (non-nil) so JSON renders [] instead of null.
	items := make([]T, 0)
	for rows.Next() {
		var item T
		if err := rows.Scan(scanTargets[T, P](&item)...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", h.table.Name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (h *Handler[T, P]) get(ctx context.Context, id int64) (*T, error) {
	conn, err := h.gw.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, h.queries.get, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, response.NotFoundError(h.table.Entity)
	}

	var item T
	if err := rows.Scan(scanTargets[T, P](&item)...); err != nil {
		return nil, fmt.Errorf("scan %s row: %w", h.table.Name, err)
	}
	return &item, nil
}

func (h *Handler[T, P]) insert(ctx context.Context, rec P) (int64, error) {
	conn, err := h.gw.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	res, err := conn.Exec(ctx, storage.Statement{
		Query: h.queries.insert,
		Args:  rec.Values(),
		Key:   h.table.PrimaryKey,
	})
	if err != nil {
		rollback(conn, h.table.Name)
		return 0, err
	}

	if err := conn.Commit(); err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

func (h *Handler[T, P]) update(ctx context.Context, id int64, columns []string, args []any) error {
	conn, err := h.gw.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	res, err := conn.Exec(ctx, storage.Statement{
		Query: updateQuery(h.table, columns),
		Args:  append(args, id),
	})
	if err != nil {
		rollback(conn, h.table.Name)
		return err
	}
	if res.RowsAffected == 0 {
		rollback(conn, h.table.Name)
		return response.NotFoundError(h.table.Entity)
	}

	return conn.Commit()
}

func (h *Handler[T, P]) remove(ctx context.Context, id int64) error {
	conn, err := h.gw.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	res, err := conn.Exec(ctx, storage.Statement{
		Query: h.queries.remove,
		Args:  []any{id},
	})
	if err != nil {
		rollback(conn, h.table.Name)
		return err
	}
	if res.RowsAffected == 0 {
		rollback(conn, h.table.Name)
		return response.NotFoundError(h.table.Entity)
	}

	return conn.Commit()
}
