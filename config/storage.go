package config

import (
	"github.com/spf13/viper"

	"github.com/stemyke/node-backend-sub000/oss"
)

// GridFSProvider stores payloads in a MongoDB GridFS bucket.
const GridFSProvider = "gridfs"

// Storage selects where asset payloads live. Provider gridfs uses Bucket as
// the GridFS bucket name; any other provider is an oss driver.
type Storage struct {
	oss.Config
}

// UseGridFS reports whether payloads go to GridFS.
func (s *Storage) UseGridFS() bool {
	return s.Provider == GridFSProvider
}

// Validate checks the oss settings unless GridFS is selected.
func (s *Storage) Validate() error {
	if s.UseGridFS() {
		return nil
	}
	return s.Config.Validate()
}

func getStorageConfig(v *viper.Viper) *Storage {
	return &Storage{Config: oss.Config{
		Provider:           getStringOrDefault(v, "storage.provider", GridFSProvider),
		ID:                 v.GetString("storage.id"),
		Secret:             v.GetString("storage.secret"),
		Region:             v.GetString("storage.region"),
		Bucket:             getStringOrDefault(v, "storage.bucket", "assetfiles"),
		Endpoint:           v.GetString("storage.endpoint"),
		UseSSL:             v.GetBool("storage.use_ssl"),
		ServiceAccountJSON: v.GetString("storage.service_account_json"),
	}}
}
