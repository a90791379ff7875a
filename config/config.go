package config

type AppConfig struct {
	StorageConfig *StorageConfig
}

func New() *AppConfig {
	return &AppConfig{
		StorageConfig: NewStorageConfig(),
	}
}
