package config

// StorageConfig configures the heap file and the buffer pool in front
// of it.
type StorageConfig struct {
	Path     string
	PoolSize int
}

func NewStorageConfig() *StorageConfig {
	return &StorageConfig{
		Path:     "btree.db",
		PoolSize: 10,
	}
}
