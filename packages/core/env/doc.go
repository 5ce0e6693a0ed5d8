// Package env handles environment variables and variable resolution for
// request documents.
//
// It provides functionality for:
//   - Loading .env files
//   - Variable interpolation using {{variable}} syntax
//   - Environment lookups using {{$NAME}}
//   - Built-in function evaluation (uuid, timestamp, random, etc.)
package env
