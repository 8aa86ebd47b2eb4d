package config

import "errors"

// WithPort sets the HTTP listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment label
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithBaseURL sets the public URL prefix used in M3U playlists
func WithBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.BaseURL = baseURL
		return nil
	}
}

// WithDatabaseURL selects the metadata store
func WithDatabaseURL(databaseURL string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = databaseURL
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithStorageURL selects the content store
func WithStorageURL(storageURL string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = storageURL
		return nil
	}
}

// WithS3Credentials sets static credentials for s3:// storage
func WithS3Credentials(accessKeyID, secretAccessKey, region string) Option {
	return func(c *ServerConfig) error {
		c.AWSAccessKeyID = accessKeyID
		c.AWSSecretAccessKey = secretAccessKey
		c.AWSRegion = region
		return nil
	}
}

// WithEventsURL selects the event bus
func WithEventsURL(eventsURL string) Option {
	return func(c *ServerConfig) error {
		c.EventsURL = eventsURL
		return nil
	}
}

// WithEventsChannel sets the Redis channel events are published on
func WithEventsChannel(channel string) Option {
	return func(c *ServerConfig) error {
		if channel == "" {
			return errors.New("events channel cannot be empty")
		}
		c.EventsChannel = channel
		return nil
	}
}

// WithWorkers sets the blob store and download stream pool sizes
func WithWorkers(blob, stream int) Option {
	return func(c *ServerConfig) error {
		if blob <= 0 || stream <= 0 {
			return errors.New("worker counts must be positive")
		}
		c.BlobWorkers = blob
		c.StreamWorkers = stream
		return nil
	}
}

// WithChunkSize sets the download chunk size in bytes
func WithChunkSize(size int) Option {
	return func(c *ServerConfig) error {
		if size <= 0 {
			return errors.New("chunk size must be positive")
		}
		c.ChunkSize = size
		return nil
	}
}
