package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/callcache/cache"
	"github.com/jonwraymond/callcache/health"
)

func ExampleAggregator() {
	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(cache.NewMemoryStore()))

	results := agg.CheckAll(context.Background())
	fmt.Println(health.Overall(results), results["store"].Message)
	// Output:
	// healthy store round-trip ok
}
