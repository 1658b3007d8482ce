// Package http exposes the storage gateway over HTTP.
//
// Routes:
//
//	POST   /api/storage/presigned-url  issue a scoped upload credential
//	DELETE /api/storage/delete         delete an owned object
//	GET    /api/images/{imageID}       fetch an inline image record
//	GET    /healthz                    liveness probe
//
// All /api routes require a bearer token; the gateway and the image repo do
// their own authorization on top of that. Errors are JSON bodies of the
// shape {"error": "..."} with the status carrying the class: 401
// unauthenticated, 403 owner mismatch, 429 rate limited, 400 invalid input,
// 404 missing record, 500 everything else.
package http
