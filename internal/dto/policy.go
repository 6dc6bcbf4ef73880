package dto

// UpdatePolicyRequest is the body of PUT /schools/:schoolId/policy.
type UpdatePolicyRequest struct {
	PolicyInput
}
