// SPDX-License-Identifier: MPL-2.0

// Package execute runs the configured script list against the runtime found
// on the classpath. A run checks runtime capability, installs the exit trap,
// builds one Shell through the Reflective Invoker, binds the BindingSet into
// it and then resolves and evaluates every entry in order.
package execute
