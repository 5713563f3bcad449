// Package instruction writes build-tool directives: one line per directive,
// each starting with a tool prefix, written to a [sink.Sink].
//
// # Line Format
//
// Every directive is exactly one line:
//
//	<prefix><name>=<value>
//	<prefix><name>=<key>=<value>
//	<prefix><key>=<value>
//	<prefix><name>
//
// A [Directive] names its layout with a [Shape]; a nil argument the layout
// needs is an error, never an omitted segment.
//
// The prefix is written as given. If the tool needs a delimiter after it
// (Cargo uses `cargo:`), the prefix must include it.
//
// # Examples
//
//	cargo:rerun-if-changed=build.rs
//	cargo:rustc-link-arg-bin=cli=-static
//	cargo:include=/opt/include
//
// # Limitations
//
// Values are not escaped. A value containing a newline produces more than one
// line and a value containing `=` may be split differently by the reading
// tool. Keeping values well-formed is up to the caller.
//
// # Writing
//
// [Prefix.Emit] renders the line, takes the sink's lock, writes the whole
// line, releases the lock and flushes. The flush runs even after a failed
// write. A write or flush error is returned to the caller; nothing is retried.
package instruction
