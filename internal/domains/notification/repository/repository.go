package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"slotwise/infras/otel"
	"slotwise/infras/postgres"
	"slotwise/internal/domains/notification/model"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/logger"
	gRepo "slotwise/shared/repository"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type Notification interface {
	Insert(ctx context.Context, model model.Notification) error
	InsertTx(ctx context.Context, tx *sqlx.Tx, model model.Notification) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Notification, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Notification, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	// MarkAllRead flips every unread notification of recipient and returns the ids it touched.
	MarkAllRead(ctx context.Context, recipientID, modifiedBy string, modifiedAt time.Time) ([]string, error)
	// DeleteByRecipient removes all notifications of recipient and returns the deleted ids.
	DeleteByRecipient(ctx context.Context, recipientID string) ([]string, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Notification]
	db      *postgres.Connection
	otel    otel.Otel
	builder squirrel.StatementBuilderType
}

func New(db *postgres.Connection, otel otel.Otel) Notification {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Notification](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, recipientID, modifiedBy string, modifiedAt time.Time) (ids []string, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".MarkAllRead")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	query, args, err := r.builder.
		Update(model.TableName).
		Set(model.FieldIsRead, true).
		Set(constant.FieldModifiedAt, modifiedAt).
		Set(constant.FieldModifiedBy, modifiedBy).
		Where(squirrel.Eq{model.FieldRecipientID: recipientID, model.FieldIsRead: false}).
		Suffix("RETURNING " + model.FieldID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query (%s): %w", model.EntityName, err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if err = r.db.Write.SelectContext(ctx, &ids, query, args...); err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to mark data as read (%s): %w", model.EntityName, err)
	}

	return ids, nil
}

func (r *repositoryImpl) DeleteByRecipient(ctx context.Context, recipientID string) (ids []string, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".DeleteByRecipient")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	query, args, err := r.builder.
		Delete(model.TableName).
		Where(squirrel.Eq{model.FieldRecipientID: recipientID}).
		Suffix("RETURNING " + model.FieldID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query (%s): %w", model.EntityName, err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if err = r.db.Write.SelectContext(ctx, &ids, query, args...); err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to delete data (%s): %w", model.EntityName, err)
	}

	return ids, nil
}
