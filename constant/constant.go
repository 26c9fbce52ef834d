package constant

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

type StorageMode string

const (
	StorageModeFilesystem StorageMode = "filesystem"
	StorageModeInline     StorageMode = "inline"
	StorageModeObject     StorageMode = "object"
)

func (m StorageMode) String() string {
	return string(m)
}

type SourceKind string

const (
	SourceKindExternal SourceKind = "EXTERNAL"
	SourceKindStored   SourceKind = "STORED"
)

const (
	// DefaultStreamWindow bounds how many bytes a single ranged
	// response carries so playback never pulls a whole asset at once.
	DefaultStreamWindow = 1 << 20

	// DefaultSessionTTL is how long an in-flight upload may sit idle
	// before the sweeper reclaims its chunks.
	DefaultSessionTTL = "30m"
)
