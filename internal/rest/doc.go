// Package rest implements types.Gateway over the agency backend's REST API.
//
// Every collection exposes GET /{collection}, GET /{collection}/{id},
// POST /{collection}, PUT /{collection}/{id}, and DELETE /{collection}/{id}.
// Responses use the envelope {"data": {...}, "message": "..."}; the envelope
// is narrowed to records here so callers never see raw response shapes.
package rest
