// Package http runs outbound requests described by a RequestSpec.
//
// A request passes through these steps:
//   - Normalization: defaults, query merged into the path, body strategy
//   - Field resolution for multipart bodies: file:/// values are opened,
//     url:/// values are downloaded to temp files first
//   - Transmission with a per-connection idle timeout
//   - Response buffering in the configured text encoding
//   - Cleanup of every temp file created for the request
package http
