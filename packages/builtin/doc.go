// Package builtin provides the functions available inside {{...}} templates
// of request documents.
//
// Available functions:
//   - uuid(): Random UUID v4
//   - now(), date(format): Current time
//   - timestamp(), timestampMs(): Current Unix time
//   - random(min, max): Random integer in range
//   - randomString(length): Random alphanumeric string
//   - base64(value), sha256(value), urlEncode(value)
package builtin
