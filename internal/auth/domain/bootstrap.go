package domain

// BootstrapData describes the first administrator created on an empty
// user store.
type BootstrapData struct {
	AdminEmail    string
	AdminFullname string
	AdminPassword string
}
