package models

// FileHashRecord is the canonical file kept for one content hash
type FileHashRecord struct {
	Hash string `json:"hash"`
	Path string `json:"path"`
}

// DedupResult summarizes one dedup run
type DedupResult struct {
	Directory    string           `json:"directory"`
	Scanned      int              `json:"scanned"`
	Kept         []FileHashRecord `json:"kept"`
	DeletedPaths []string         `json:"deleted_paths"`
}

// Deleted returns the number of files removed
func (r *DedupResult) Deleted() int {
	return len(r.DeletedPaths)
}
