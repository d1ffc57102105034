package fitfob

import "github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"

// flowDeps is built once by Build. Flow code only sees these function
// fields, never the engine.
func (e *Engine) flowDeps() flows.Deps {
	return flows.Deps{
		Registration:  e.registrationFlowDeps(),
		Login:         e.loginFlowDeps(),
		PasswordReset: e.passwordResetFlowDeps(),
		MFA:           e.mfaFlowDeps(),
		Approval:      e.approvalFlowDeps(),
	}
}
