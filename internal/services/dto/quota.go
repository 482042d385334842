package dto

type QuotaInfo struct {
	Plan      string `json:"plan"`
	Period    string `json:"period"`
	Used      int64  `json:"used"`
	Allowance int64  `json:"allowance"`
	Cap       int64  `json:"cap"`
	Remaining int64  `json:"remaining"`
}

// SetPlanRequest is deliberately unvalidated: any plan string is accepted at
// the edge and normalized by the plan registry (unknown values store free).
type SetPlanRequest struct {
	Plan string `json:"plan"`
}

type SetPlanResponse struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// GrantAllowanceRequest carries the top-up amount. Negative amounts are
// clamped to zero by the counter store rather than rejected here.
type GrantAllowanceRequest struct {
	Tokens int64 `json:"tokens"`
}

type GrantAllowanceResponse struct {
	UserID    string `json:"user_id"`
	Period    string `json:"period"`
	Allowance int64  `json:"allowance"`
}

type ResolveUserResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
