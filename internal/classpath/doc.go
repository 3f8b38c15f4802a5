// SPDX-License-Identifier: MPL-2.0

// Package classpath provides late binding to script runtimes.
//
// Runtime providers register themselves under an element name at init time
// (see RegisterProvider). A Classpath is assembled from a list of element
// names taken from configuration, and callers resolve types, constructors and
// methods on it by name and exact parameter signature, then invoke them
// through reflection. Callers therefore never hold a compile-time reference
// to a runtime's Go types.
//
// Resolution and invocation failures are reported as one of four error kinds:
// TypeNotFoundError, InvocationTargetError, InstantiationError and
// AccessError. Each wraps its own sentinel so callers can tell them apart with
// errors.Is.
package classpath
