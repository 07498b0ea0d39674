package models

// DelegationEffect is the outcome a delegation rule carries.
type DelegationEffect string

const (
	EffectAllow DelegationEffect = "allow"
	EffectDeny  DelegationEffect = "deny"
)

// Delegation grants (or denies) an action on a resource, or on everything
// under it, to a user other than the owner. ResourceType/ResourceID scope
// the rule to a node of the ownership hierarchy.
type Delegation struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Action       string
	Effect       DelegationEffect
}
