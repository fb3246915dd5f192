package models

type Config struct {
	Debug bool `envconfig:"TILEVAR_DEBUG" default:"false"`
	Api   struct {
		Port                    string `envconfig:"TILEVAR_API_INTERNAL_PORT" default:"5000"`
		Url                     string `envconfig:"TILEVAR_API_URL" yaml:"url"`
		VcfPath                 string `envconfig:"TILEVAR_API_VCF_PATH" yaml:"vcfPath"`
		IngestionBatchSize      int    `envconfig:"TILEVAR_API_INGESTION_BATCH_SIZE" default:"5000"`
		FileProcessingSlots     int    `envconfig:"TILEVAR_API_FILE_PROCESSING_CONCURRENCY_LEVEL" default:"2"`
		FilterOutReferenceCalls bool   `envconfig:"TILEVAR_API_FILTER_OUT_REFERENCE_CALLS" default:"false"`
	} `yaml:"api"`
	Engine struct {
		WorkspacePath         string `envconfig:"TILEVAR_ENGINE_WORKSPACE" yaml:"workspacePath"`
		SocketPath            string `envconfig:"TILEVAR_ENGINE_SOCKET" default:"/tmp/tilevar/engine.sock" yaml:"socketPath"`
		Command               string `envconfig:"TILEVAR_ENGINE_COMMAND" yaml:"command"`
		StartupTimeoutSeconds int    `envconfig:"TILEVAR_ENGINE_STARTUP_TIMEOUT" default:"10" yaml:"startupTimeoutSeconds"`
		RequestTimeoutSeconds int    `envconfig:"TILEVAR_ENGINE_REQUEST_TIMEOUT" default:"30" yaml:"requestTimeoutSeconds"`
	} `yaml:"engine"`
	Stats struct {
		SamplingPlanPath string `envconfig:"TILEVAR_STATS_SAMPLING_PLAN" yaml:"samplingPlanPath"`
	} `yaml:"stats"`
	Maintenance struct {
		Enabled         bool   `envconfig:"TILEVAR_MAINTENANCE_ENABLED" default:"true" yaml:"enabled"`
		DailyRunTimeUtc string `envconfig:"TILEVAR_MAINTENANCE_DAILY_RUN_TIME" default:"04:00:00" yaml:"dailyRunTimeUtc"`
	} `yaml:"maintenance"`
}
