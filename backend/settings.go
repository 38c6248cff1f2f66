package backend

// Settings are the recognized config-settings passed by the frontend.
type Settings struct {
	HostProfile  string // conan host-context profile
	BuildProfile string // conan build-context profile
	BuildDir     string // persistent build directory, empty = ephemeral
}

// ParseSettings extracts the recognized keys from the frontend's
// config-settings mapping; unknown keys are ignored.
func ParseSettings(config map[string]string) Settings {
	s := Settings{
		HostProfile:  config["host-profile"],
		BuildProfile: config["build-profile"],
		BuildDir:     config["build-dir"],
	}
	if s.HostProfile == "" {
		s.HostProfile = "default"
	}
	if s.BuildProfile == "" {
		s.BuildProfile = "default"
	}
	return s
}
