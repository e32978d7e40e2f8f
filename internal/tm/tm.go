// Package tm defines the contracts the segment store consumes: translation
// memory engines, the pool that manages them, machine translation providers,
// and the skeleton merger that produces final translated output. The store
// never manages a memory's own storage; it only talks through these
// interfaces.
package tm

// Match is one ranked alternative returned by a memory search. Source and
// Target carry inline markup when the memory stored any.
type Match struct {
	Source     string
	Target     string
	Similarity int
}

// TU is a translation unit handed to a memory for storage.
type TU struct {
	ID     string
	Source string
	Target string
	// Tags maps code ids to the literal markup they stand for, so the
	// memory can round-trip inline codes.
	Tags map[string]string
}

// Engine is a single open translation memory.
type Engine interface {
	Name() string
	Close() error

	StoreTU(tu TU) error
	Commit() error

	SearchTranslation(text, srcLang, tgtLang string, minSimilarity int, caseSensitive bool) ([]Match, error)
	ConcordanceSearch(text, srcLang string, limit int, isRegexp, caseSensitive bool) ([]TU, error)

	StoreTMX(path, project, client, subject string) (int, error)
	ExportMemory(path string, langs []string, srcLang string) error
	DeleteDatabase() error
}

// Pool opens memories by id and tracks their display names.
type Pool interface {
	Open(id string) (Engine, error)
	Close(id string) error
	DisplayName(id string) string
}

// Translation is one machine-translation alternative. Key is the provider's
// own identifier and doubles as the stored match id.
type Translation struct {
	Key     string
	SrcLang string
	TgtLang string
	Target  string
}

// Translator is a machine translation provider.
type Translator interface {
	Translate(source string) ([]Translation, error)
}

// Merger merges an updated document against its skeleton to produce output
// in the original native format. A non-zero status is a hard failure and
// message carries the collaborator's diagnostic.
type Merger interface {
	Merge(xliffPath, outputPath, catalog string, acceptUnconfirmed bool) (status int, message string)
}
