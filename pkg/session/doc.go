/*
Package session builds on a ports.SessionStore for hosts that need more than
result-shaped calls.

Table exposes every store operation with a completion notifier that is invoked
exactly once per call, and Reaper runs Cleanup on a fixed interval until its
context is cancelled.
*/
package session
