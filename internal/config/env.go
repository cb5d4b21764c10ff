package config

import (
	"github.com/JaimeStill/form-intake/internal/database"
	"github.com/JaimeStill/form-intake/internal/objectstore"
	"github.com/JaimeStill/form-intake/pkg/logging"
)

var databaseEnv = &database.Env{
	Driver:            "DATABASE_DRIVER",
	URI:               "DATABASE_URI",
	Host:              "DATABASE_HOST",
	Port:              "DATABASE_PORT",
	Name:              "DATABASE_NAME",
	User:              "DATABASE_USER",
	Password:          "DATABASE_PASSWORD",
	Schema:            "DATABASE_SCHEMA",
	ProjectID:         "DATABASE_PROJECT_ID",
	DatabaseID:        "DATABASE_DATABASE_ID",
	Collections:       "DATABASE_COLLECTIONS",
	ReconnectTries:    "DATABASE_RECONNECT_TRIES",
	ReconnectInterval: "DATABASE_RECONNECT_INTERVAL",
	HeartbeatInterval: "DATABASE_HEARTBEAT_INTERVAL",
	ConnTimeout:       "DATABASE_CONN_TIMEOUT",
}

var storageEnv = &objectstore.Env{
	Backend:         "STORAGE_BACKEND",
	Bucket:          "STORAGE_BUCKET",
	BasePath:        "STORAGE_BASE_PATH",
	BaseURL:         "STORAGE_BASE_URL",
	Endpoint:        "STORAGE_ENDPOINT",
	CredentialsFile: "STORAGE_CREDENTIALS_FILE",
	Timeout:         "STORAGE_TIMEOUT",
	MaxUploadSize:   "STORAGE_MAX_UPLOAD_SIZE",
}

var loggingEnv = &logging.Env{
	Level:     "LOGGING_LEVEL",
	Format:    "LOGGING_FORMAT",
	AddSource: "LOGGING_ADD_SOURCE",
	Service:   "LOGGING_SERVICE",
}
