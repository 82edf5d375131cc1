package domain

import "fmt"

// AgentRole identifies one of the six analyst variants.
type AgentRole string

const (
	RoleTechnical       AgentRole = "technical"
	RoleFundamental     AgentRole = "fundamental"
	RoleFundFlow        AgentRole = "fund_flow"
	RoleRiskManagement  AgentRole = "risk_management"
	RoleMarketSentiment AgentRole = "market_sentiment"
	RoleNewsAnalyst     AgentRole = "news_analyst"
)

// CanonicalRoles is the fixed order used when summarizing reviews for the
// team discussion, independent of task completion order.
var CanonicalRoles = []AgentRole{
	RoleTechnical,
	RoleFundamental,
	RoleFundFlow,
	RoleRiskManagement,
	RoleMarketSentiment,
	RoleNewsAnalyst,
}

// UnknownRoleError is returned when a request names a role that does not
// exist. Unknown keys are rejected at the boundary rather than dropped.
type UnknownRoleError struct {
	Key string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown analyst role %q", e.Key)
}

var validRoles = map[AgentRole]bool{
	RoleTechnical:       true,
	RoleFundamental:     true,
	RoleFundFlow:        true,
	RoleRiskManagement:  true,
	RoleMarketSentiment: true,
	RoleNewsAnalyst:     true,
}

// ParseRole converts a request key into an AgentRole.
func ParseRole(key string) (AgentRole, error) {
	role := AgentRole(key)
	if !validRoles[role] {
		return "", &UnknownRoleError{Key: key}
	}
	return role, nil
}

// ParseRoles converts a list of request keys, failing on the first unknown key.
func ParseRoles(keys []string) ([]AgentRole, error) {
	roles := make([]AgentRole, 0, len(keys))
	for _, key := range keys {
		role, err := ParseRole(key)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}
