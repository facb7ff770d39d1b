package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"

	domain "github.com/techmall/storefront-api/internal/domain"
	pfirestore "github.com/techmall/storefront-api/internal/platform/firestore"
)

const countAlias = "count"

func countQuery(ctx context.Context, op string, query firestore.Query) (int, error) {
	result, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	n, err := aggregateInt(result, countAlias)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

func aggregateInt(result firestore.AggregationResult, alias string) (int64, error) {
	raw, ok := result[alias]
	if !ok {
		return 0, fmt.Errorf("aggregation %q missing", alias)
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("aggregation %q: unexpected type %T", alias, raw)
	}
	switch v := value.GetValueType().(type) {
	case *firestorepb.Value_IntegerValue:
		return v.IntegerValue, nil
	case *firestorepb.Value_DoubleValue:
		return int64(v.DoubleValue), nil
	case *firestorepb.Value_NullValue:
		return 0, nil
	default:
		return 0, fmt.Errorf("aggregation %q: unexpected value %T", alias, v)
	}
}

func normalisePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return domain.PageCount(total, pageSize)
}
