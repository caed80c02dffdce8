// Package view binds reconciled auction state to a presentation layer.
//
// Only the data-binding contract lives here: a Binder receives discrete
// state snapshots and connection status transitions. Rendering is the
// embedding application's concern.
package view
