// Package dayli provides the storage core for the Dayli journaling app:
// request signing, object key management, and the shared types used by the
// object-store client, the local fallback store, the storage router, and the
// secure upload gateway.
//
// # Key Components
//
//   - Signer: AWS Signature V4 request signing (header auth, presigned GET
//     URLs, and presigned POST policies)
//   - Reference: parsed form of a stored-object reference, the URI-like
//     string that encodes which backend holds the bytes
//   - ObjectMetadata: per-object metadata recorded at upload time, the sole
//     authorization signal for later mutating operations
//
// The router package is the facade the rest of the app calls; the objectstore
// and localstore packages implement the two storage backends behind it. The
// gateway package is the server-side trust boundary that issues scoped upload
// credentials and authorizes deletes.
package dayli
