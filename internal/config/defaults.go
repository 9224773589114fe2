package config

func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Enabled:            false,
		PullPolicy:         "if-not-present",
		StopTimeoutSeconds: 10,
		TaskTimeoutSeconds: 300,
		MemoryLimit:        "128m",
		CPULimit:           0.5,
		PidsLimit:          50,
		SecurityOpt:        []string{"no-new-privileges"},
		ReadonlyRootfs:     true,
	}
}
