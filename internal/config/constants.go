package config

// DefaultDatabasePath is the default path for the SQLite document store.
const DefaultDatabasePath = "./wordpack.db"
