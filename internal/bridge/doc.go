// Package bridge turns one HTTP call into engine process calls.
//
// A worker call starts a process instance and waits for its result, which is
// returned without the variables the caller sent in. A workflow call or a
// form submission starts an instance and returns its key at once. Caller
// parameters travel as process variables; keys the bridge injects itself use
// the ReservedPrefix namespace, which callers may not use.
package bridge
