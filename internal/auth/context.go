package auth

// Role of an authenticated principal.
type Role string

const (
	RoleVendor Role = "VENDOR"
	RoleAdmin  Role = "ADMIN"
)

// CurrentVendor is the short profile of whoever is logged in.
type CurrentVendor struct {
	ID        int64
	VendorRef string
	Role      Role
}

const ContextVendorKey = "currentVendor"

func (cv CurrentVendor) IsAdmin() bool {
	return cv.Role == RoleAdmin
}
