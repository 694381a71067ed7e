package pricing

import (
	"context"
	"time"
)

// Fetcher retrieves the raw content of a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor parses one seller page into a PriceRecord. Implementations never
// return an error to the caller: fetch or parse failures come back as a
// record with Error set and all price fields absent.
type Extractor interface {
	Extract(ctx context.Context, url string) PriceRecord
}

// ResultStore is the append-only intermediate record log written during a
// run and consumed once by the report builder.
type ResultStore interface {
	Append(result ProductResult) error
	ReadAll() ([]ProductResult, error)
	Remove() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
