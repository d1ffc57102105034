// Package password hashes the local password mirror with argon2id.
//
// Hashes are encoded in PHC string format with unpadded base64:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Length policy (minimum six characters on reset) is enforced by the engine.
package password
