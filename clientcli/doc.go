// Package clientcli implements the client-side logic for the dayli-cli tool.
//
// The client talks to a Dayli server over its REST API. Uploads are a
// two-step flow: the server issues a presigned POST credential, then the
// client sends the file straight to the object store with a multipart form
// built from that credential. Deletes and image fetches go through the
// server, which enforces ownership.
//
// Connection settings come from profiles stored in ~/.dayli/config.yaml,
// overridable through environment variables and flags.
package clientcli
