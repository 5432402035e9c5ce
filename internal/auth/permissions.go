package auth

import "slices"

// Permission is a named capability checked by the API.
type Permission string

const (
	PermStateRead      Permission = "state:read"
	PermMinerOperate   Permission = "miner:operate"
	PermNotifierSend   Permission = "notifier:send"
	PermAdapterManage  Permission = "adapter:manage"
	PermRegistryManage Permission = "registry:manage"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStateRead,
	},
	RoleOperator: {
		PermStateRead,
		PermMinerOperate,
		PermNotifierSend,
	},
	RoleAdmin: {
		PermStateRead,
		PermMinerOperate,
		PermNotifierSend,
		PermAdapterManage,
		PermRegistryManage,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the permissions granted to role,
// or nil for an unknown role.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
