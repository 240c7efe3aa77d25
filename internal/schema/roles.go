package schema

// Capabilities gate administrative actions. A role holds every capability of
// the roles below it.
const (
	CapManageOptions = "manage_options"
	CapPublishPages  = "publish_pages"
	CapPublishPosts  = "publish_posts"
	CapEditPosts     = "edit_posts"
	CapRead          = "read"
)

// DefaultImportRole is used when no import role is configured.
const DefaultImportRole = "Administrator"

// RoleCapability returns the capability a role name requires.
// Unknown roles map to "".
func RoleCapability(role string) string {
	switch role {
	case "Super Admin", "Administrator":
		return CapManageOptions
	case "Editor":
		return CapPublishPages
	case "Author":
		return CapPublishPosts
	case "Contributor":
		return CapEditPosts
	case "Subscriber", "Anyone":
		return CapRead
	}
	return ""
}

var roleCapabilities = map[string][]string{
	"Super Admin":   {CapManageOptions, CapPublishPages, CapPublishPosts, CapEditPosts, CapRead},
	"Administrator": {CapManageOptions, CapPublishPages, CapPublishPosts, CapEditPosts, CapRead},
	"Editor":        {CapPublishPages, CapPublishPosts, CapEditPosts, CapRead},
	"Author":        {CapPublishPosts, CapEditPosts, CapRead},
	"Contributor":   {CapEditPosts, CapRead},
	"Subscriber":    {CapRead},
}

// HasCapability reports whether role grants capability.
func HasCapability(role, capability string) bool {
	if capability == "" {
		return false
	}
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// KnownRole reports whether role is a recognized role name.
func KnownRole(role string) bool {
	return RoleCapability(role) != ""
}
