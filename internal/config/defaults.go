package config

const (
	defaultDataDir               = "~/.local/share/clipflow"
	defaultLogDir                = "~/.local/share/clipflow/logs"
	defaultIngestDir             = "~/clipflow/incoming"
	defaultAPIBind               = "127.0.0.1:7519"
	defaultFrameGenPollSeconds   = 2.0
	defaultFrameGenTimeout       = 30
	defaultSpeechModel           = "whisper-1"
	defaultSpeechTimeout         = 300
	defaultSegmentWindowSeconds  = 5.0
	defaultMaxAttempts           = 3
	defaultRetryDelaySeconds     = 2.0
	defaultDependencyWaitSeconds = 30.0
	defaultGatePollSeconds       = 5.0
	defaultIngestSettleSeconds   = 2
	defaultFFprobeBinary         = "ffprobe"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			IngestDir: defaultIngestDir,
			APIBind:   defaultAPIBind,
		},
		FrameGen: FrameGen{
			PollIntervalSeconds: defaultFrameGenPollSeconds,
			RequestTimeout:      defaultFrameGenTimeout,
		},
		Speech: Speech{
			Model:          defaultSpeechModel,
			RequestTimeout: defaultSpeechTimeout,
		},
		Workflow: Workflow{
			SegmentWindowSeconds:  defaultSegmentWindowSeconds,
			MaxAttempts:           defaultMaxAttempts,
			RetryDelaySeconds:     defaultRetryDelaySeconds,
			RetryBackoff:          true,
			DependencyWaitSeconds: defaultDependencyWaitSeconds,
			GatePollSeconds:       defaultGatePollSeconds,
		},
		Ingest: Ingest{
			Enabled:       false,
			SettleSeconds: defaultIngestSettleSeconds,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
