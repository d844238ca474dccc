// Package session is the client-side session and authorization core for the
// accreditation platform: a process-wide authentication state machine, a
// route-guarding policy, and a revalidating fetch cache.
//
// State machine:
//   - Manager owns the Session (credential plus validated user). Initialize
//     hydrates synchronously from a Store and validates the credential
//     against the identity API in the background; Login, Logout, and Refresh
//     drive the remaining transitions. Every asynchronous identity call
//     carries the manager epoch, and logout advances it, so a slow
//     validation can never reassert an authenticated state after logout.
//
// Route guarding:
//   - Evaluate is the pure decision table (render, hold, or redirect by
//     status and role allow-list); Guard keeps one surface's decision current
//     by subscribing to the Manager, with idempotent redirect intents handed
//     to a Navigator. RouterGuard and FiberGuard adapt the decision to HTTP
//     middleware.
//
// Revalidating cache:
//   - Cache returns last-known values immediately while refreshing them in
//     the background, coalescing concurrent requests per key and keeping
//     stale values on producer failure. Attach wires it to the Manager so a
//     logout purges every entry and orphans in-flight producer calls.
package session
