package port

import (
	"context"

	"arbradar/internal/domain/model"
)

// Collector pulls one venue's full perpetual ticker snapshot over REST:
// prices, funding, open interest and volume for every listed contract.
// Implementations normalize funding to percent-per-period and zero prices
// to absent before returning.
type Collector interface {
	Name() string
	FetchAll(ctx context.Context) ([]*model.Ticker, error)
}
