package serviceInfo

const (
	SERVICE_ID          string = "ca.distributedgenomics.tilevar"
	SERVICE_NAME        string = "Tilevar API"
	SERVICE_TYPE        string = "ca.distributedgenomics:tilevar:1.0.0"
	SERVICE_DESCRIPTION string = "Variant bridge over a process-managed columnar storage engine"
	SERVICE_VERSION     string = "1.0.0"

	SERVICE_WELCOME string = "Welcome to the Tilevar API!"
)
