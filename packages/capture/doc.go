// Package capture extracts values from responses.
//
// Selectors:
//   - status, duration
//   - header.<name> (case-insensitive)
//   - body, or body.<path> where path uses gjson syntax (user.id, items.#.name)
//
// A bare path is read as a body path.
package capture
