package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	TLS_DOMAINS       = ""            // e.g. "hablandodecaballos.com,www.hablandodecaballos.com"
	MYSQL_DSN         = ""            // MySQL will be used if this is set
	SQLITE_FILE       = "caballos.db" // SQLite will be used if MYSQL_DSN is not configured
	BIND_ADDRESS      = "0.0.0.0:8080"
	DEBUG_MODE        = true
	SESSION_KEY       = "change me, please" // Signs the session cookie
	PUBLIC_BASE_URL   = ""                  // Prefix for generated absolute URLs, e.g. "https://hablandodecaballos.com"
	TEMPLATES_DIR     = "templates"
	URL_SIGNING_KEY   = "" // HMAC key for private disk URLs. Falls back to SESSION_KEY
	PRIVILEGED_EMAILS = "" // Comma-separated. Bootstrapped as admin grants on start-up

	// Object storage
	STORAGE_TYPE  = "disk" // "disk" or "s3"
	STORAGE_DIR   = "data" // Base directory for disk storage
	S3_BUCKET     = ""
	S3_REGION     = "us-east-1"
	S3_ENDPOINT   = "" // Custom endpoint (MinIO, R2, etc)
	S3_KEY        = ""
	S3_SECRET     = ""
	S3_PUBLIC_URL = "" // Public base URL of the bucket, e.g. "https://cdn.example.com"

	// Uploads
	UPLOAD_MAX_BYTES       = int64(50 * 1024 * 1024)
	UPLOAD_RATE_PER_MINUTE = 60 // files per user per minute, 0 disables the limit
	THUMB_SIZE             = 1280

	// Larger images are stored but never decoded
	MAX_IMAGE_PIXELS = int64(100 * 1000 * 1000)

	// Revalidation / background work
	REVALIDATE_WEBHOOK = ""               // Optional external endpoint notified with stale paths
	ORPHAN_SWEEP_AFTER = time.Duration(0) // 0 disables the orphaned upload sweep
	PROCESSING_EVERY   = 30 * time.Second

	// Anonymous page cache
	PAGE_CACHE_TTL         = 10 * time.Minute // 0 keeps pages until their path goes stale
	PAGE_CACHE_MAX_ENTRIES = 5000             // 0 disables the limit
)

func init() {
	readEnvString("CONFIG_FILE", &configFile)
	if configFile != "" {
		if err := LoadFile(configFile); err != nil {
			panic("cannot load config file " + configFile + ": " + err.Error())
		}
	}
	ReadEnv()
}

var configFile = ""

// ReadEnv applies environment variables on top of the current values.
func ReadEnv() {
	readEnvString("TLS_DOMAINS", &TLS_DOMAINS)
	readEnvString("MYSQL_DSN", &MYSQL_DSN)
	readEnvString("SQLITE_FILE", &SQLITE_FILE)
	readEnvString("BIND_ADDRESS", &BIND_ADDRESS)
	readEnvBool("DEBUG_MODE", &DEBUG_MODE)
	readEnvString("SESSION_KEY", &SESSION_KEY)
	readEnvString("PUBLIC_BASE_URL", &PUBLIC_BASE_URL)
	readEnvString("TEMPLATES_DIR", &TEMPLATES_DIR)
	readEnvString("URL_SIGNING_KEY", &URL_SIGNING_KEY)
	readEnvString("PRIVILEGED_EMAILS", &PRIVILEGED_EMAILS)
	readEnvString("STORAGE_TYPE", &STORAGE_TYPE)
	readEnvString("STORAGE_DIR", &STORAGE_DIR)
	readEnvString("S3_BUCKET", &S3_BUCKET)
	readEnvString("S3_REGION", &S3_REGION)
	readEnvString("S3_ENDPOINT", &S3_ENDPOINT)
	readEnvString("S3_KEY", &S3_KEY)
	readEnvString("S3_SECRET", &S3_SECRET)
	readEnvString("S3_PUBLIC_URL", &S3_PUBLIC_URL)
	readEnvInt64("UPLOAD_MAX_BYTES", &UPLOAD_MAX_BYTES)
	readEnvInt("UPLOAD_RATE_PER_MINUTE", &UPLOAD_RATE_PER_MINUTE)
	readEnvInt("THUMB_SIZE", &THUMB_SIZE)
	readEnvInt64("MAX_IMAGE_PIXELS", &MAX_IMAGE_PIXELS)
	readEnvString("REVALIDATE_WEBHOOK", &REVALIDATE_WEBHOOK)
	readEnvDuration("ORPHAN_SWEEP_AFTER", &ORPHAN_SWEEP_AFTER)
	readEnvDuration("PROCESSING_EVERY", &PROCESSING_EVERY)
	readEnvDuration("PAGE_CACHE_TTL", &PAGE_CACHE_TTL)
	readEnvInt("PAGE_CACHE_MAX_ENTRIES", &PAGE_CACHE_MAX_ENTRIES)
}

// fileConfig mirrors the variables above for YAML config files.
// Only non-zero values override the defaults.
type fileConfig struct {
	TLSDomains          string   `yaml:"tls_domains"`
	MySQLDSN            string   `yaml:"mysql_dsn"`
	SQLiteFile          string   `yaml:"sqlite_file"`
	BindAddress         string   `yaml:"bind_address"`
	DebugMode           *bool    `yaml:"debug_mode"`
	SessionKey          string   `yaml:"session_key"`
	PublicBaseURL       string   `yaml:"public_base_url"`
	TemplatesDir        string   `yaml:"templates_dir"`
	URLSigningKey       string   `yaml:"url_signing_key"`
	PrivilegedEmails    []string `yaml:"privileged_emails"`
	StorageType         string   `yaml:"storage_type"`
	StorageDir          string   `yaml:"storage_dir"`
	S3Bucket            string   `yaml:"s3_bucket"`
	S3Region            string   `yaml:"s3_region"`
	S3Endpoint          string   `yaml:"s3_endpoint"`
	S3Key               string   `yaml:"s3_key"`
	S3Secret            string   `yaml:"s3_secret"`
	S3PublicURL         string   `yaml:"s3_public_url"`
	UploadMaxBytes      int64    `yaml:"upload_max_bytes"`
	UploadRatePerMinute *int     `yaml:"upload_rate_per_minute"`
	ThumbSize           int      `yaml:"thumb_size"`
	MaxImagePixels      int64    `yaml:"max_image_pixels"`
	RevalidateWebhook   string   `yaml:"revalidate_webhook"`
	OrphanSweepAfter    string   `yaml:"orphan_sweep_after"`
	ProcessingEvery     string   `yaml:"processing_every"`
	PageCacheTTL        string   `yaml:"page_cache_ttl"`
	PageCacheMaxEntries *int     `yaml:"page_cache_max_entries"`
}

// LoadFile reads a YAML config file. Environment variables still take precedence.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fc := fileConfig{}
	if err = yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	setString(fc.TLSDomains, &TLS_DOMAINS)
	setString(fc.MySQLDSN, &MYSQL_DSN)
	setString(fc.SQLiteFile, &SQLITE_FILE)
	setString(fc.BindAddress, &BIND_ADDRESS)
	if fc.DebugMode != nil {
		DEBUG_MODE = *fc.DebugMode
	}
	setString(fc.SessionKey, &SESSION_KEY)
	setString(fc.PublicBaseURL, &PUBLIC_BASE_URL)
	setString(fc.TemplatesDir, &TEMPLATES_DIR)
	setString(fc.URLSigningKey, &URL_SIGNING_KEY)
	setString(strings.Join(fc.PrivilegedEmails, ","), &PRIVILEGED_EMAILS)
	setString(fc.StorageType, &STORAGE_TYPE)
	setString(fc.StorageDir, &STORAGE_DIR)
	setString(fc.S3Bucket, &S3_BUCKET)
	setString(fc.S3Region, &S3_REGION)
	setString(fc.S3Endpoint, &S3_ENDPOINT)
	setString(fc.S3Key, &S3_KEY)
	setString(fc.S3Secret, &S3_SECRET)
	setString(fc.S3PublicURL, &S3_PUBLIC_URL)
	if fc.UploadMaxBytes > 0 {
		UPLOAD_MAX_BYTES = fc.UploadMaxBytes
	}
	if fc.UploadRatePerMinute != nil {
		UPLOAD_RATE_PER_MINUTE = *fc.UploadRatePerMinute
	}
	if fc.ThumbSize > 0 {
		THUMB_SIZE = fc.ThumbSize
	}
	if fc.MaxImagePixels > 0 {
		MAX_IMAGE_PIXELS = fc.MaxImagePixels
	}
	setString(fc.RevalidateWebhook, &REVALIDATE_WEBHOOK)
	if fc.PageCacheMaxEntries != nil {
		PAGE_CACHE_MAX_ENTRIES = *fc.PageCacheMaxEntries
	}
	if err = setDuration(fc.PageCacheTTL, &PAGE_CACHE_TTL); err != nil {
		return err
	}
	if err = setDuration(fc.OrphanSweepAfter, &ORPHAN_SWEEP_AFTER); err != nil {
		return err
	}
	return setDuration(fc.ProcessingEvery, &PROCESSING_EVERY)
}

// PrivilegedEmails returns the normalised list of bootstrap admin emails.
func PrivilegedEmails() []string {
	result := []string{}
	for _, e := range strings.Split(PRIVILEGED_EMAILS, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			result = append(result, e)
		}
	}
	return result
}

func SigningKey() []byte {
	if URL_SIGNING_KEY != "" {
		return []byte(URL_SIGNING_KEY)
	}
	return []byte(SESSION_KEY)
}

func setString(v string, value *string) {
	if v != "" {
		*value = v
	}
}

func setDuration(v string, value *time.Duration) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*value = d
	return nil
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*value = f
}

func readEnvInt64(name string, value *int64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	*value = f
}

func readEnvDuration(name string, value *time.Duration) {
	_ = setDuration(os.Getenv(name), value)
}
