package common

// HasRole tells if a member holding these roles has the required one.
// An empty required role is never held
func HasRole(requiredRoleId string, memberRoleIds []string) bool {
	if requiredRoleId == "" {
		return false
	}
	for _, roleId := range memberRoleIds {
		if roleId == requiredRoleId {
			return true
		}
	}
	return false
}
