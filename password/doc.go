// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash on the next successful login.
//
// [Argon2.CheckPolicy] applies the byte-length bounds that Hash enforces, so
// callers can reject a password before doing any work.
//
// This package owns hashing only. It never stores passwords and never logs
// plaintext or parameters.
package password
