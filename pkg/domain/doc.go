/*
Package domain contains the core models of the session table.

It defines what a stored session looks like, how its expiration instant is derived from the
payload, and the error taxonomy every store operation reports through. This package is kept pure
and free of external dependencies like I/O or persistence.

# Key Entities

  - Payload: the opaque, JSON-serializable session state. Only the max-age hint is interpreted.
  - Record: a stored row (identifier, payload, expiration in epoch milliseconds).
  - Error: the uniform failure shape, classified by Kind.
*/
package domain
