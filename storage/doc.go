// Package storage provides content-addressed replication for committed
// policy artifacts, with pluggable backends.
//
// The storage package offers a unified interface for storing and retrieving
// content identified by SHA-256 hash across multiple storage backends:
//
//   - File system storage for local development and single-node deployments
//   - S3-compatible storage for cloud deployments
//   - IPFS storage for decentralized distribution
//   - Vault storage for artifacts kept behind secret-store access controls
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/policyd/artifacts/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/
//   - vault://vault.example.com:8200/secret/policies?token=...
//
// # Content Addressing
//
// Content is stored and retrieved using content addressing, where the
// content identifier is the SHA-256 hash of the data. Committed policy
// artifacts and archived signed requests live in separate namespaces, keyed
// by interfaces.ContentType.
//
// # Multi-Backend Replication
//
// The lifecycle manager replicates each committed artifact through a
// MultiStorageBackend, which stores to every available backend and falls
// back through them on fetch:
//
//	factory := storage.NewFactory(logger)
//	locations := []interfaces.StorageBackendLocation{fileLoc, s3Loc}
//	backend, err := factory.CreateMultiBackend(locations)
//
// Replication is best-effort: the sqlite record store remains the source of
// truth for the currently committed policy of each role.
package storage
