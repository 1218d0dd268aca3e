package sessiontable_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aretw0/sessiontable"
	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// ExampleOpen stores a session in a private in-memory database and reads it back.
func ExampleOpen() {
	ctx := context.Background()

	store, err := sessiontable.Open(ctx, ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.Set(ctx, "abc", domain.Payload{"userId": 123}); err != nil {
		log.Fatal(err)
	}

	payload, err := store.Get(ctx, "abc")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(payload["userId"])

	missing, _ := store.Get(ctx, "nope")
	fmt.Println(missing == nil)

	// Output:
	// 123
	// true
}

// ExampleOpen_cleanup shows that expiry is applied by Cleanup, not by reads.
func ExampleOpen_cleanup() {
	ctx := context.Background()
	clock := ports.NewManualClock(time.UnixMilli(1000))

	store, err := sessiontable.Open(ctx, ":memory:", sessiontable.WithClock(clock.Now))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	_ = store.Set(ctx, "short", domain.Payload{"cookie": map[string]any{"maxAge": 1}})
	_ = store.Set(ctx, "long", domain.Payload{})

	clock.Advance(time.Second)

	stale, _ := store.Get(ctx, "short")
	fmt.Println(stale != nil)

	removed, _ := store.Cleanup(ctx)
	n, _ := store.Length(ctx)
	fmt.Println(removed, n)

	// Output:
	// true
	// 1 1
}
