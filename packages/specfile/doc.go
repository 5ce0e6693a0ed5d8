// Package specfile loads request documents.
//
// A request document is a YAML or JSON mapping describing one outbound
// request:
//
//	name: upload avatar
//	url: https://api.example.com/users/{{userId}}/avatar
//	method: POST
//	headers:
//	  Content-Type: multipart/form-data
//	  Authorization: Bearer {{$API_TOKEN}}
//	body:
//	  caption: hello
//	  image: url:///https://cdn.example.com/pic.png
//	  report: file:///tmp/report.pdf
//	timeout: 30s
//
// Documents are checked against an embedded JSON schema before {{...}}
// expressions are resolved. Explicit protocol, host, port and path fields
// override the parts derived from url.
package specfile
