package devenv

// PortalTestConfig is read from dev/.state/portal_config.json5 by the tests
// that talk to a live district court portal.
type PortalTestConfig struct {
	BaseUrl      string `json:"base_url"`
	CourtComplex string `json:"court_complex"`
}
