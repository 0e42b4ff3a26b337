package constant

type StorageMode string

const (
	StorageModeAuto    StorageMode = "auto"
	StorageModeIndexed StorageMode = "indexed"
	StorageModeDirect  StorageMode = "direct"
)

func (m StorageMode) String() string {
	return string(m)
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

const (
	RecordingFilePrefix    = "recording_"
	RecordingFileExtension = ".3gp"
	RecordingMimeType      = "audio/3gpp"

	// ContentReferencePrefix is the collection every indexed recording is inserted into.
	ContentReferencePrefix = "content://media/external/audio/media/"

	// SharedMusicDir is the shared media directory used by the direct storage path.
	SharedMusicDir = "Music"
)
