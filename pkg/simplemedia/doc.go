// Package simplemedia manages a catalog of media organized into ordered
// playlists, with media content kept in a separate blob store.
//
// The Service keeps three stores consistent: a transactional MetadataStore for
// playlists, media and the bindings that join them; a BlobStore holding one
// object per media, keyed by the media ID; and an EventBus that receives one
// event per changed row. Playlist and media IDs are mutable. Renaming either
// rewrites every binding that references it inside the same transaction, and
// renaming media also moves its content object once the transaction has
// committed. Deleting cascades the same way.
//
// Bindings carry a rank, a fractional-indexing key (see the orderkey
// subpackage), so a playlist can be reordered by touching a single binding.
//
// Media content is streamed with the bridge subpackage, which converts
// between context-aware Streams used by callers and the blocking readers
// used by storage SDKs.
//
// Implementations of the MetadataStore (memory, Postgres, SQLite), the
// BlobStore (memory, filesystem, S3, MinIO) and the EventBus (Redis, memory)
// are provided under subpackages.
package simplemedia
