// Package repository is the generic table gateway the domain repositories embed.
// Filters arrive as dto.FilterGroup with named parameters and are bound to positional
// parameters for whichever connection or transaction runs them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"slotwise/infras/otel"
	"slotwise/infras/postgres"
	"slotwise/shared/constant"
	"slotwise/shared/dto"
	"slotwise/shared/logger"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrRequiredFilter = errors.New("required filter")

type runner interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(query string) string
}

type Repository[T any] struct {
	db            *postgres.Connection
	otel          otel.Otel
	table         string
	entity        string
	primaryColumn string
	columns       []string
}

func NewRepository[T any](entityName, tableName, primaryColumn string, db *postgres.Connection, otl otel.Otel) Repository[T] {
	var zero T

	return Repository[T]{
		db:            db,
		otel:          otl,
		table:         tableName,
		entity:        entityName,
		primaryColumn: primaryColumn,
		columns:       columnsOf(reflect.TypeOf(zero)),
	}
}

// Columns lists the db columns of T in declaration order, embedded structs flattened.
func (repo *Repository[T]) Columns() []string {
	return slices.Clone(repo.columns)
}

func (repo *Repository[T]) scope(ctx context.Context, operation string) (context.Context, otel.Scope) {
	return repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName,
		fmt.Sprintf("%s.%s.%s", constant.OtelRepositoryScopeName, repo.entity, operation))
}

func (repo *Repository[T]) fail(scope otel.Scope, action string, err error) error {
	logger.ErrorWithStack(err)
	scope.TraceError(err)

	return fmt.Errorf("failed to %s (%s): %w", action, repo.entity, err)
}

func (repo *Repository[T]) Insert(ctx context.Context, model T) error {
	return repo.insert(ctx, repo.db.Write, "Insert", model)
}

func (repo *Repository[T]) InsertTx(ctx context.Context, tx *sqlx.Tx, model T) error {
	return repo.insert(ctx, tx, "InsertTx", model)
}

func (repo *Repository[T]) insert(ctx context.Context, db runner, operation string, model T) error {
	ctx, scope := repo.scope(ctx, operation)
	defer scope.End()

	placeholders := make([]string, len(repo.columns))
	for idx, col := range repo.columns {
		placeholders[idx] = ":" + col
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", repo.table, strings.Join(repo.columns, ", "), strings.Join(placeholders, ", "))
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bound, args, err := bind(db, query, model)
	if err != nil {
		return repo.fail(scope, "insert data", err)
	}

	if _, err = db.ExecContext(ctx, bound, args...); err != nil {
		return repo.fail(scope, "insert data", err)
	}

	return nil
}

func (repo *Repository[T]) Exist(ctx context.Context, filter dto.FilterGroup) (bool, error) {
	ctx, scope := repo.scope(ctx, "Exist")
	defer scope.End()

	where, args := filter.GetWhereClause()
	if where == constant.Empty {
		return false, ErrRequiredFilter
	}

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", repo.table, where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var exist bool

	if err := repo.get(ctx, repo.db.Read, &exist, query, args); err != nil {
		return false, repo.fail(scope, "check exist data", err)
	}

	return exist, nil
}

// Get returns the zero T when nothing matches.
func (repo *Repository[T]) Get(ctx context.Context, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.scope(ctx, "Get")
	defer scope.End()

	where, args := filter.GetWhereClause()
	query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT 1", repo.selectList(columns), repo.table, whereClause(where))
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var model T

	err := repo.get(ctx, repo.db.Read, &model, query, args)
	if errors.Is(err, sql.ErrNoRows) {
		return model, nil
	}

	if err != nil {
		return model, repo.fail(scope, "get data", err)
	}

	return model, nil
}

func (repo *Repository[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.scope(ctx, "GetAll")
	defer scope.End()

	where, args := filter.GetWhereClause()

	var builder strings.Builder

	fmt.Fprintf(&builder, "SELECT %s FROM %s%s%s", repo.selectList(columns), repo.table, whereClause(where), repo.orderBy(params))

	if params.Limit > 0 {
		args["limit"] = params.Limit

		builder.WriteString(" LIMIT :limit")

		if params.Page > 0 {
			args["offset"] = params.Offset()

			builder.WriteString(" OFFSET :offset")
		}
	}

	query := builder.String()
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bound, bindArgs, err := bind(repo.db.Read, query, args)
	if err != nil {
		return nil, repo.fail(scope, "get all data", err)
	}

	models := []T{}

	if err = sqlx.SelectContext(ctx, repo.db.Read, &models, bound, bindArgs...); err != nil {
		return nil, repo.fail(scope, "get all data", err)
	}

	return models, nil
}

func (repo *Repository[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.scope(ctx, "Count")
	defer scope.End()

	where, args := filter.GetWhereClause()
	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s%s", repo.primaryColumn, repo.table, whereClause(where))
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var count int

	if err := repo.get(ctx, repo.db.Read, &count, query, args); err != nil {
		return 0, repo.fail(scope, "count data", err)
	}

	return count, nil
}

func (repo *Repository[T]) Update(ctx context.Context, values map[string]any, filter dto.FilterGroup) error {
	return repo.update(ctx, repo.db.Write, "Update", values, filter)
}

func (repo *Repository[T]) UpdateTx(ctx context.Context, tx *sqlx.Tx, values map[string]any, filter dto.FilterGroup) error {
	return repo.update(ctx, tx, "UpdateTx", values, filter)
}

// update refuses to run without a filter so a missing where clause never rewrites the table.
func (repo *Repository[T]) update(ctx context.Context, db runner, operation string, values map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, operation)
	defer scope.End()

	where, args := filter.GetWhereClause()
	if where == constant.Empty {
		return ErrRequiredFilter
	}

	assignments := []string{}

	// set_ keeps the new values apart from filter arguments on the same column
	for _, col := range slices.Sorted(maps.Keys(values)) {
		assignments = append(assignments, fmt.Sprintf("%s = :set_%s", col, col))
		args["set_"+col] = values[col]
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", repo.table, strings.Join(assignments, ", "), where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bound, bindArgs, err := bind(db, query, args)
	if err != nil {
		return repo.fail(scope, "update data", err)
	}

	if _, err = db.ExecContext(ctx, bound, bindArgs...); err != nil {
		return repo.fail(scope, "update data", err)
	}

	return nil
}

func (repo *Repository[T]) Delete(ctx context.Context, filter dto.FilterGroup) error {
	return repo.delete(ctx, repo.db.Write, "Delete", filter)
}

func (repo *Repository[T]) DeleteTx(ctx context.Context, tx *sqlx.Tx, filter dto.FilterGroup) error {
	return repo.delete(ctx, tx, "DeleteTx", filter)
}

func (repo *Repository[T]) delete(ctx context.Context, db runner, operation string, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, operation)
	defer scope.End()

	where, args := filter.GetWhereClause()
	if where == constant.Empty {
		return ErrRequiredFilter
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", repo.table, where)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bound, bindArgs, err := bind(db, query, args)
	if err != nil {
		return repo.fail(scope, "delete data", err)
	}

	if _, err = db.ExecContext(ctx, bound, bindArgs...); err != nil {
		return repo.fail(scope, "delete data", err)
	}

	return nil
}

func (repo *Repository[T]) get(ctx context.Context, db runner, dest any, query string, args map[string]any) error {
	bound, bindArgs, err := bind(db, query, args)
	if err != nil {
		return err
	}

	return sqlx.GetContext(ctx, db, dest, bound, bindArgs...) //nolint:wrapcheck
}

// selectList keeps the requested columns that T actually has, or all of them.
func (repo *Repository[T]) selectList(requested []string) string {
	if len(requested) == 0 {
		return strings.Join(repo.columns, ", ")
	}

	selected := slices.DeleteFunc(slices.Clone(requested), func(col string) bool {
		return !slices.Contains(repo.columns, col)
	})

	if len(selected) == 0 {
		return strings.Join(repo.columns, ", ")
	}

	return strings.Join(selected, ", ")
}

// orderBy only sorts on known columns; anything else falls back to newest first.
func (repo *Repository[T]) orderBy(params dto.QueryParams) string {
	if params.SortBy != constant.Empty && slices.Contains(repo.columns, params.SortBy) {
		dir := dto.SortDirAsc
		if strings.EqualFold(params.SortDir, dto.SortDirDesc) {
			dir = dto.SortDirDesc
		}

		return fmt.Sprintf(" ORDER BY %s %s", params.SortBy, dir)
	}

	if slices.Contains(repo.columns, constant.FieldCreatedAt) {
		return fmt.Sprintf(" ORDER BY %s %s", constant.FieldCreatedAt, dto.SortDirDesc)
	}

	return constant.Empty
}

func whereClause(where string) string {
	if where == constant.Empty {
		return constant.Empty
	}

	return " WHERE " + where
}

func bind(db runner, query string, arg any) (string, []any, error) {
	named, args, err := sqlx.Named(query, arg)
	if err != nil {
		return constant.Empty, nil, fmt.Errorf("failed to bind query: %w", err)
	}

	return db.Rebind(named), args, nil
}

func columnsOf(reflectType reflect.Type) []string {
	columns := []string{}

	for i := range reflectType.NumField() {
		field := reflectType.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			columns = append(columns, columnsOf(field.Type)...)

			continue
		}

		if tag := field.Tag.Get("db"); tag != constant.Empty && tag != "-" {
			columns = append(columns, tag)
		}
	}

	return columns
}
