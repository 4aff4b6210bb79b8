// Package version exposes build information for the assetd binary.
//
// Values are set at build time:
//
//	go build -ldflags "\
//	  -X github.com/stemyke/node-backend-sub000/version.Version=1.2.3 \
//	  -X github.com/stemyke/node-backend-sub000/version.Branch=main \
//	  -X github.com/stemyke/node-backend-sub000/version.Revision=abc123 \
//	  -X 'github.com/stemyke/node-backend-sub000/version.BuiltAt=$(date)'" ./cmd/assetd
//
// Revision and BuiltAt fall back to the VCS stamp of the build.
package version
