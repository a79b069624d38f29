package detector

// WindowsManagers returns the Windows package managers in preference order.
func WindowsManagers() []string {
	return []string{"winget", "chocolatey", "scoop"}
}
