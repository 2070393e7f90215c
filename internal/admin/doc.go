// Package admin exposes runtime pool management over HTTP.
//
//	GET    /admin/servers           list the pool and the active strategy
//	POST   /admin/servers           add {"url", "weight"}
//	DELETE /admin/servers?url=      remove a server
//	POST   /admin/servers/enable    {"url"}
//	POST   /admin/servers/disable   {"url"}
//	POST   /admin/servers/weight    {"url", "weight"}, weighted strategies only
//	GET    /admin/strategy          name of the active strategy
//	PUT    /admin/strategy          {"type"} rebuilds the pool under a new strategy
//
// Request bodies are validated with ozzo-validation. Guard optionally puts
// HMAC-signed JWT bearer authentication and a token bucket in front of the API.
package admin
