package config

// Default paths for databases
const (
	// DefaultLocalDatabasePath is the default path for the embedded offline database
	DefaultLocalDatabasePath = "./data/arcade.db"
)
