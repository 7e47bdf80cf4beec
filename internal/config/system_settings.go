package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DATABASE_TYPE = "WFREST_DATABASE_TYPE"
const DATABASE_URL = "WFREST_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "WFREST_DATABASE_SQLLITE_FILE_NAME"
const SERVER_WEB_PORT = "WFREST_SERVER_WEB_PORT"
const WEB_SESSION_EXPIRY_HOURS = "WFREST_WEB_SESSION_EXPIRY_HOURS"
const REDIS_URL = "WFREST_REDIS_URL"             //empty disables the person cache
const PERSON_CACHE_TTL = "WFREST_PERSON_CACHE_TTL" //go duration
const TRACING_ENABLED = "WFREST_TRACING_ENABLED"
const LOG_LEVEL = "WFREST_LOG_LEVEL"
const LOG_FILE = "WFREST_LOG_FILE"
const LOG_MAX_SIZE_MB = "WFREST_LOG_MAX_SIZE_MB"
const LOG_MAX_BACKUPS = "WFREST_LOG_MAX_BACKUPS"
const LOG_MAX_AGE_DAYS = "WFREST_LOG_MAX_AGE_DAYS"
const ADMIN_USERNAME = "WFREST_ADMIN_USERNAME"
const ADMIN_PASSWORD = "WFREST_ADMIN_PASSWORD"

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

var defaults = map[string]string{
	DATABASE_TYPE:              DATABASE_TYPE_SQLLITE,
	DATABASE_SQLLITE_FILE_NAME: "./workflowrest.db",
	SERVER_WEB_PORT:            "8080",
	WEB_SESSION_EXPIRY_HOURS:   "1",
	PERSON_CACHE_TTL:           "5m",
	TRACING_ENABLED:            "false",
	LOG_LEVEL:                  "info",
	LOG_MAX_SIZE_MB:            "50",
	LOG_MAX_BACKUPS:            "3",
	LOG_MAX_AGE_DAYS:           "28",
	ADMIN_USERNAME:             "admin",
	ADMIN_PASSWORD:             "admin",
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingBool(settingKey string) bool {
	b, _ := strconv.ParseBool(GetSystemSettingString(settingKey))
	return b
}

// GetSystemSettingDuration parses the setting as a go duration, 0 when invalid.
func GetSystemSettingDuration(settingKey string) time.Duration {
	d, _ := time.ParseDuration(GetSystemSettingString(settingKey))
	return d
}

func GetSystemSettingString(settingKey string) string {
	val := strings.TrimSpace(os.Getenv(settingKey))
	if val != "" {
		return val
	}
	return defaults[settingKey]
}
