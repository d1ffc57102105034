// Package identifier canonicalizes the email-or-phone strings users sign in with.
//
// Every lookup, OTP dispatch, and identity provider call goes through
// [Normalize] first, so the same person always maps to the same key regardless
// of spacing, casing, or whether the country code was typed.
package identifier
