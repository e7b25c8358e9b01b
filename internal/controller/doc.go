// Package controller orchestrates user-triggered mutations of one collection.
//
// A Controller owns the collection's record store. It loads the store from a
// types.Gateway, and for each create, update, or delete it validates the
// input locally, calls the gateway once, and applies the confirmed result to
// the store. A failed call leaves the store untouched. Each mutation walks the
// lifecycle idle, validating, submitting, succeeded or failed, and back to
// idle; validation failures return to idle without a gateway call.
//
// Local toggles (for example a contact's starred flag) change the store only
// and never reach the gateway.
package controller
