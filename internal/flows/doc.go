// Package flows contains the orchestration for every Engine operation.
//
// Each Run function (RunRegister, RunLogin, RunVerifyMFA, ...) takes a typed
// dependency struct of plain function fields, sentinel errors, audit event
// names and metric ids. The root engine fills these in; tests fill them with
// fakes.
//
// Flows do not import the root package and own no resources. Redis, the
// user store, the OTP gateway and the identity provider are reached only
// through the dependency fields.
package flows
