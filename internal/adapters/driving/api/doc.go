// Package api serves the question-answering HTTP interface: POST /query,
// GET /health and the embedded browser page.
package api
