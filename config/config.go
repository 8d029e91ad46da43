package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"acre-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (resolved parcel/event store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"acre"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Input feeds
	DataDir          string `env:"DATA_DIR" env-default:"/app/data"`
	ParcelFeedGlob   string `env:"PARCEL_FEED_GLOB" env-default:"*parcels*.csv"`
	EventFeedGlob    string `env:"EVENT_FEED_GLOB" env-default:"*CSV.zip"`
	CountyFilter     string `env:"COUNTY_FILTER" env-default:""`
	OrphanReportPath string `env:"ORPHAN_REPORT_PATH" env-default:""`
	ParcelReportPath string `env:"PARCEL_REPORT_PATH" env-default:""`

	// Resolution engine
	ParcelNormalizePolicy string  `env:"PARCEL_NORMALIZE_POLICY" env-default:"alphanumeric"`
	EventNormalizePolicy  string  `env:"EVENT_NORMALIZE_POLICY" env-default:"alphanumeric"`
	RegistryTieBreak      string  `env:"REGISTRY_TIE_BREAK" env-default:"first"`
	AddressThreshold      float64 `env:"FUZZY_ADDRESS_THRESHOLD" env-default:"80"`
	ParcelIDThreshold     float64 `env:"FUZZY_PARCEL_ID_THRESHOLD" env-default:"80"`
	MatchWorkerCount      int     `env:"MATCH_WORKER_COUNT" env-default:"4"`

	// Kafka (event transport between ingestion stages)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaEventTopic      string   `env:"KAFKA_EVENT_TOPIC" env-default:"parcel-events"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"acre-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"false"`
	KafkaBatchSize       int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
}
