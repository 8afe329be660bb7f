package model

// Roles carried by verified identities.
const (
	RoleAdmin      = "admin"
	RoleFoodbank   = "foodbank"
	RoleIndividual = "individual"
	RoleVolunteer  = "volunteer"
)

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFoodbank, RoleIndividual, RoleVolunteer:
		return true
	}
	return false
}

// RoleAllowed reports whether role is one of allowed. Admins are always
// allowed; unknown roles never are.
func RoleAllowed(role string, allowed ...string) bool {
	if role == RoleAdmin {
		return true
	}
	if !ValidRole(role) {
		return false
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
