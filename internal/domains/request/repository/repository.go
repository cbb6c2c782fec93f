package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slotwise/infras/otel"
	"slotwise/infras/postgres"
	"slotwise/internal/domains/request/model"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/logger"
	gRepo "slotwise/shared/repository"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type Request interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, model model.Request) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Request, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Request, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	// GetForUpdate reads the request and locks its row until tx ends. A missing row returns a zero Request.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (model.Request, error)
	// ActiveOnDate lists the consultant's pending and approved requests on date.
	// With a nil tx it reads outside any transaction.
	ActiveOnDate(ctx context.Context, tx *sqlx.Tx, consultantID string, date time.Time) ([]model.Request, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Request]
	db      *postgres.Connection
	otel    otel.Otel
	builder squirrel.StatementBuilderType
}

func New(db *postgres.Connection, otel otel.Otel) Request {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Request](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (res model.Request, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".GetForUpdate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	query, args, err := r.builder.
		Select(r.Columns()...).
		From(model.TableName).
		Where(squirrel.Eq{model.FieldID: id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return res, fmt.Errorf("failed to build query (%s): %w", model.EntityName, err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = tx.GetContext(ctx, &res, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return res, fmt.Errorf("failed to lock data (%s): %w", model.EntityName, err)
	}

	return res, nil
}

func (r *repositoryImpl) ActiveOnDate(ctx context.Context, tx *sqlx.Tx, consultantID string, date time.Time) (res []model.Request, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".ActiveOnDate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	statuses := make([]string, len(model.ActiveStatuses))
	for idx, status := range model.ActiveStatuses {
		statuses[idx] = string(status)
	}

	query, args, err := r.builder.
		Select(r.Columns()...).
		From(model.TableName).
		Where(squirrel.Eq{
			model.FieldConsultantID:  consultantID,
			model.FieldRequestedDate: date.Format(constant.DateOnlyFormat),
			model.FieldStatus:        statuses,
		}).
		OrderBy(model.FieldFromTime).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query (%s): %w", model.EntityName, err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var queryer sqlx.QueryerContext = r.db.Read
	if tx != nil {
		queryer = tx
	}

	if err = sqlx.SelectContext(ctx, queryer, &res, query, args...); err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to get active data (%s): %w", model.EntityName, err)
	}

	return res, nil
}
