package model

const (
	AppServiceName = "tenant-exporter"
	NamespaceName  = "jaraba"
	CurrentVersion = "25.08"

	// PlatformName labels archive manifests.
	PlatformName = "Jaraba Impact Platform SaaS"
)
