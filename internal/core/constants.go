package core

import "time"

// Scanner configuration defaults
const (
	// DefaultWorkerCount is the default number of concurrent workers
	DefaultWorkerCount = 100

	// DefaultTimeoutMs is the default connection timeout in milliseconds
	DefaultTimeoutMs = 200

	// DefaultUDPBufferSize is the buffer size for UDP responses (1KB)
	DefaultUDPBufferSize = 1024

	// DefaultUDPJitterMaxMs is the maximum jitter in milliseconds for UDP scanning
	DefaultUDPJitterMaxMs = 10

	// DefaultUDPWorkerRatio is the default ratio of workers for UDP (half of TCP workers)
	DefaultUDPWorkerRatio = 0.5

	// DefaultMaxRetries is the default number of retry attempts for failed connections
	DefaultMaxRetries = 2
)

// Channel buffer sizes
const (
	// ResultChannelBufferSize is the buffer size for the results channel
	ResultChannelBufferSize = 1000
)

// Banner grabbing configuration
const (
	// BannerGrabTimeout is the timeout for reading service banners
	BannerGrabTimeout = 1 * time.Second

	// BannerBufferSize is the buffer size for reading service banners
	BannerBufferSize = 512
)

// Progress reporting configuration
const (
	// ProgressReportInterval is how often to report progress updates
	ProgressReportInterval = 100 * time.Millisecond
)

// Retry backoff configuration
const (
	// RetryBackoffBase is the base duration for retry backoff
	RetryBackoffBase = 50 * time.Millisecond

	// RetryJitterMinMs is the minimum jitter in milliseconds
	RetryJitterMinMs = 10

	// RetryJitterMaxMs is the maximum jitter in milliseconds
	RetryJitterMaxMs = 50

	// RetryJitterRangeMs is the range for jitter calculation (max - min + 1)
	RetryJitterRangeMs = 41
)

// Rate limiting configuration
const (
	// MaxSafeRateLimit is the maximum safe rate limit in packets per second
	MaxSafeRateLimit = 15000
)

// Scan engine defaults and sentinels (§4.7). The sentinels are the
// "user did not override" markers: the engine only substitutes an
// adaptive-learning recommendation when the caller passed exactly
// these values.
const (
	UserDefaultTimeoutMs    = 1000
	UserDefaultRateLimitMs  = 10
	UserDefaultParallelism  = 50
	DefaultParallelHosts    = 50
	MinParallelism          = 1
	MaxParallelism          = 100
	MinRateLimitMs          = 10
)

// Result cache (§3, §5).
const (
	CacheTTLSeconds  = 3600
	CacheMaxEntries  = 1000
)

// Protocol detector / fingerprinting (§4.2-§4.5).
const (
	DetectorSemaphoreWidth  = 10
	DetectorProbeTimeout    = 3 * time.Second
	AdaptiveProbeTimeout    = 2 * time.Second
	AdaptiveBannerWait      = 1 * time.Second
	MaxProbeResponseBytes   = 4096
	ParallelDetectorConfidenceFloor = 0.0
	AdaptiveDetectorConfidenceFloor = 0.5
	FingerprintTLSEarlyExit         = 0.8
	FingerprintPhase2EarlyExit      = 0.7
	FingerprintPhase2Threshold      = 0.5
	FingerprintPhase3Threshold      = 0.3
)

// Adaptive learning (§4.6).
const (
	NetworkProfileEWMAAlpha = 0.1
	SmartPortListSize       = 100
	TopCommonPortsK         = 50
	RecencyDecayDays        = 30
	PerformanceHighWatermark = 0.8
	PerformanceLowWatermark  = 0.5
	ParamAdjustPct           = 0.10
)
