/*
Package sessiontable is a persistent key/value store for web sessions, backed by a single SQLite table.

Each record maps a session identifier to a JSON payload and an absolute expiration instant in
milliseconds. The expiration comes from the payload's own max-age hint (a top-level "maxAge" or
"cookie.maxAge", in milliseconds) or from the configured default lifetime of 24 hours.

Expired records are not hidden from reads: they disappear when Cleanup runs, either called
directly or driven by session.Reaper.

# Usage

	store, err := sessiontable.Open(ctx, "sessions.db", sessiontable.WithTable("web_sessions"))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	err = store.Set(ctx, "abc", domain.Payload{"userId": 123, "cookie": map[string]any{"maxAge": 60000}})
	payload, err := store.Get(ctx, "abc") // nil, nil when absent

# Packages

  - pkg/adapters/sqlite: the durable store.
  - pkg/adapters/memory, pkg/adapters/redis: alternative backends with the same contract.
  - pkg/persistence/middleware: encryption, PII masking, logging and metrics decorators.
  - pkg/session: notifier-style facade and the cleanup reaper.
  - cmd/sessiontable: command line tool to inspect and maintain a store.
*/
package sessiontable
