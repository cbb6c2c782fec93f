package dto_test

import (
	"net/http"
	"net/http/httptest"
	"slotwise/shared/constant"
	"slotwise/shared/dto"
	"slotwise/shared/model"
	"slotwise/shared/timezone"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_FromModel(t *testing.T) {
	created := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("modified", func(t *testing.T) {
		modified := created.Add(90 * time.Minute)

		metadata := dto.Metadata{}
		metadata.FromModel(model.Metadata{
			CreatedAt:  created,
			ModifiedAt: modified,
			CreatedBy:  "sales-1",
			ModifiedBy: "consultant-1",
		})

		assert.Equal(t, timezone.Format(created, constant.DateFormat), metadata.CreatedAt)
		assert.Equal(t, timezone.Format(modified, constant.DateFormat), metadata.ModifiedAt)
		assert.Equal(t, "sales-1", metadata.CreatedBy)
		assert.Equal(t, "consultant-1", metadata.ModifiedBy)
	})

	t.Run("never modified", func(t *testing.T) {
		metadata := dto.Metadata{ModifiedBy: "stale"}
		metadata.FromModel(model.NewMetadata("sales-1", created))

		assert.Equal(t, "sales-1", metadata.CreatedBy)
		assert.Empty(t, metadata.ModifiedAt)
		assert.Empty(t, metadata.ModifiedBy)
	})
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		paginate bool
		expected dto.QueryParams
	}{
		{
			name:     "all parameters",
			query:    "page=2&limit=20&sort_by=requested_date&sort_dir=asc",
			expected: dto.QueryParams{Page: 2, Limit: 20, SortBy: "requested_date", SortDir: dto.SortDirAsc},
		},
		{
			name:     "defaults when paginating",
			paginate: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "nothing set without pagination",
			expected: dto.QueryParams{},
		},
		{
			name:     "garbage page and limit fall back",
			query:    "page=abc&limit=-5",
			paginate: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:     "limit is capped",
			query:    "limit=5000",
			paginate: true,
			expected: dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.MaxValueLimit},
		},
		{
			name:     "unknown sort direction is dropped",
			query:    "sort_by=status&sort_dir=sideways",
			expected: dto.QueryParams{SortBy: "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/requests?"+tt.query, nil)

			params := dto.QueryParams{}
			params.FromRequest(req, tt.paginate)

			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestQueryParams_Offset(t *testing.T) {
	assert.Equal(t, 0, dto.QueryParams{}.Offset())
	assert.Equal(t, 0, dto.QueryParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, dto.QueryParams{Page: 3, Limit: 10}.Offset())
}

func TestFilter_GetWhereClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    dto.Filter
		wantWhere string
		wantArgs  map[string]any
	}{
		{
			name:      "equal",
			filter:    dto.Eq("status", "pending"),
			wantWhere: "status = :status",
			wantArgs:  map[string]any{"status": "pending"},
		},
		{
			name:      "table qualified with arg name",
			filter:    dto.Filter{Table: "booking_requests", Field: "id", ArgName: "request_id", Value: "r-1", Operator: dto.FilterOperatorNotEq},
			wantWhere: "booking_requests.id != :request_id",
			wantArgs:  map[string]any{"request_id": "r-1"},
		},
		{
			name:      "in expands each value",
			filter:    dto.Filter{Field: "status", Value: []string{"pending", "approved"}, Operator: dto.FilterOperatorIn},
			wantWhere: "status IN (:status_0, :status_1)",
			wantArgs:  map[string]any{"status_0": "pending", "status_1": "approved"},
		},
		{
			name:      "empty in matches nothing",
			filter:    dto.Filter{Field: "status", Value: []string{}, Operator: dto.FilterOperatorIn},
			wantWhere: "FALSE",
			wantArgs:  map[string]any{},
		},
		{
			name:      "in with a scalar is ignored",
			filter:    dto.Filter{Field: "status", Value: "pending", Operator: dto.FilterOperatorIn},
			wantWhere: "",
			wantArgs:  map[string]any{},
		},
		{
			name:      "is null",
			filter:    dto.Filter{Field: "request_id", Operator: dto.FilterOperatorIsNull},
			wantWhere: "request_id IS NULL",
			wantArgs:  map[string]any{},
		},
		{
			name:      "unknown operator",
			filter:    dto.Filter{Field: "status", Value: "x", Operator: "like"},
			wantWhere: "",
			wantArgs:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.GetWhereClause()

			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	t.Run("nested groups", func(t *testing.T) {
		group := dto.And(
			dto.Eq("consultant_id", "c-1"),
			dto.FilterGroup{Operator: dto.FilterGroupOperatorOr, Filters: []dto.Condition{dto.Eq("status", "pending"), dto.Filter{Field: "status", ArgName: "status_alt", Value: "approved", Operator: dto.FilterOperatorEq}}},
		)

		where, args := group.GetWhereClause()

		assert.Equal(t, "(consultant_id = :consultant_id AND (status = :status OR status = :status_alt))", where)
		assert.Equal(t, map[string]any{"consultant_id": "c-1", "status": "pending", "status_alt": "approved"}, args)
	})

	t.Run("empty conditions are skipped", func(t *testing.T) {
		where, args := dto.And(dto.And(), nil, dto.Filter{Field: "x", Operator: "like"}).GetWhereClause()

		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("with copies", func(t *testing.T) {
		base := dto.FilterGroup{Filters: []dto.Condition{dto.Eq("status", "pending")}}
		extended := base.With(dto.Eq("created_by", "sales-1"))

		assert.Len(t, base.Filters, 1)

		where, _ := extended.GetWhereClause()
		assert.Equal(t, "(status = :status AND created_by = :created_by)", where)
	})
}
