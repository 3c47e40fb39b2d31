// Package auth provides API-key authentication and role-based authorization
// for Weathervane.
//
// The model is deliberately small:
//   - Every account holds one opaque API key, generated at creation and
//     transmitted per request in the apiKey header.
//   - Roles are a closed set (STUDENT, TEACHER, SENSOR) with exact-match
//     membership against a per-operation allow-list. There is no hierarchy:
//     TEACHER is not "at least" STUDENT.
//   - The Authorizer only reads accounts; recording usage (last-login) is an
//     explicit separate step taken by the request gate on the success path.
//
// Stored roles are decoded into the closed set at authorization time. An
// account whose stored role no longer parses is denied (ErrUnknownRole,
// which wraps ErrForbidden) rather than erroring out, so a bad bulk role
// update degrades to deny instead of breaking lookups.
//
// Known gap, kept on purpose: passwords are stored as supplied and never
// verified. The upstream data contract works this way (the API key is the
// only credential) and inventing a hashing scheme here would silently change
// the account wire format. See DESIGN.md.
package auth
