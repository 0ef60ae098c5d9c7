package permission

import "sort"

type Role string

type Capability string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
)

const (
	DashboardView    Capability = "dashboard.view"
	ContentRead      Capability = "content.read"
	NewsManage       Capability = "news.manage"
	LettersManage    Capability = "letters.manage"
	GalleryManage    Capability = "gallery.manage"
	StructureManage  Capability = "structure.manage"
	PopulationManage Capability = "population.manage"
	SlidesManage     Capability = "slides.manage"
	ProfileManage    Capability = "profile.manage"
	MessagesRead     Capability = "messages.read"
	MessagesManage   Capability = "messages.manage"
	MediaUpload      Capability = "media.upload"
	UsersRead        Capability = "users.read"
	UsersManage      Capability = "users.manage"
	UsersCreate      Capability = "users.create"
	UsersAssignRole  Capability = "users.assign_role"
	SettingsManage   Capability = "settings.manage"
	LogsView         Capability = "logs.view"
)

var all = []Capability{
	DashboardView, ContentRead,
	NewsManage, LettersManage, GalleryManage, StructureManage, PopulationManage, SlidesManage, ProfileManage,
	MessagesRead, MessagesManage,
	MediaUpload,
	UsersRead, UsersManage, UsersCreate, UsersAssignRole,
	SettingsManage, LogsView,
}

// rolePermissions is the single source of truth for what each role may do.
var rolePermissions = map[Role][]Capability{
	RoleSuperAdmin: all,
	RoleAdmin: {
		DashboardView, ContentRead,
		NewsManage, LettersManage, GalleryManage, StructureManage, PopulationManage, SlidesManage, ProfileManage,
		MessagesRead, MessagesManage,
		MediaUpload,
		UsersRead, UsersManage,
		LogsView,
	},
}

// roleLevel orders roles, higher is more privileged.
var roleLevel = map[Role]int{
	RoleSuperAdmin: 100,
	RoleAdmin:      80,
}

var grants = buildGrants()

func buildGrants() map[Role]map[Capability]bool {
	out := make(map[Role]map[Capability]bool, len(rolePermissions))
	for role, caps := range rolePermissions {
		set := make(map[Capability]bool, len(caps))
		for _, c := range caps {
			set[c] = true
		}
		out[role] = set
	}
	return out
}

// Can reports whether role holds capability. Unknown roles and capabilities are denied.
func Can(role Role, capability Capability) bool {
	return grants[role][capability]
}

// Capabilities returns the sorted capability set of role, empty for unknown roles.
func Capabilities(role Role) []Capability {
	caps := append([]Capability{}, rolePermissions[role]...)
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// All lists every capability the system knows.
func All() []Capability {
	return append([]Capability{}, all...)
}

// Roles lists known roles from most to least privileged.
func Roles() []Role {
	roles := make([]Role, 0, len(roleLevel))
	for r := range roleLevel {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roleLevel[roles[i]] > roleLevel[roles[j]] })
	return roles
}

func IsKnown(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// Highest is the role that must always keep at least one active holder.
func Highest() Role {
	return RoleSuperAdmin
}

func Level(role Role) int {
	return roleLevel[role]
}
