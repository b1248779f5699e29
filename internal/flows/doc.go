// Package flows contains the orchestrators behind every Engine operation.
//
// Each Run function takes a dependency struct of callbacks, so flows never
// own a store, a limiter or a token codec and can be tested with plain
// closures. Sentinel errors, metric IDs and audit event names are injected by
// the engine through the Errors, Metrics and Events members.
//
// Flows must not import goAccount.
package flows
