// Package identity talks to the AWS Cognito user pool that owns credentials.
//
// The local database mirrors each account and links it by the Cognito "sub".
// Usernames in the pool are the canonical identifier the account was created
// with: the +91 phone number when the user has one, otherwise the email.
package identity
