/*
Package ports defines the driven ports (interfaces) of the session table.

These interfaces decouple callers from the storage engine, so the same operations can be served
by the SQLite table, Redis, or an in-memory map.

# Key Interfaces

  - SessionStore: get/set/destroy/all/length/clear/touch/cleanup over session records.
  - Clock: the time source used to compute and evaluate expiration.

RunSessionStoreContract is a reusable test suite every adapter runs against.
*/
package ports
