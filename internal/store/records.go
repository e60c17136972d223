package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/util"
)

// Scope restricts duplicate-digest discovery to paths under Prefix.
// An empty Prefix means the whole catalog.
type Scope struct {
	Prefix string

	// Segmented requires the match to end on a path separator boundary,
	// so "/a/b" does not cover "/a/bc". The default is a plain string
	// prefix match.
	Segmented bool
}

// Candidate is a path returned by the candidate query
type Candidate struct {
	Path string
	Size int64
}

// Stats summarizes the catalog
type Stats struct {
	Records          int
	TotalBytes       int64
	DuplicateGroups  int
	ReclaimableBytes int64
}

// Lookup returns the record stored for path, or a sentinel record when
// there is none
func (s *Store) Lookup(path string) (record.Record, error) {
	abs, err := record.Normalize(path)
	if err != nil {
		return record.Sentinel(""), err
	}

	var (
		r    record.Record
		hash []byte
	)
	err = s.db.QueryRow(`
		SELECT dir, size, time, hash FROM dedup WHERE dir = ?
	`, abs).Scan(&r.Path, &r.Size, &r.ModTime, &hash)

	if err == sql.ErrNoRows {
		return record.Sentinel(abs), nil
	}
	if err != nil {
		return record.Sentinel(abs), fmt.Errorf("failed to look up %s: %w", abs, err)
	}

	r.Digest = decodeDigest(hash, abs)
	return r, nil
}

// Upsert inserts or replaces the record for r.Path.
// Sentinel records are never written.
func (s *Store) Upsert(r record.Record) error {
	if r.NoStatus() {
		return fmt.Errorf("refusing to store %q: %w", r.Path, record.ErrNoStatus)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO dedup (dir, size, time, hash) VALUES (?, ?, ?, ?)
	`, r.Path, r.Size, r.ModTime, r.Digest.Bytes())
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", r.Path, err)
	}

	return nil
}

// Delete removes the record for path
func (s *Store) Delete(path string) error {
	if _, err := s.db.Exec("DELETE FROM dedup WHERE dir = ?", path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Paths returns every stored path in insertion order
func (s *Store) Paths() ([]string, error) {
	rows, err := s.db.Query("SELECT dir FROM dedup ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}

	return paths, rows.Err()
}

// Count returns the number of records
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM dedup").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Stats returns catalog-wide totals
func (s *Store) Stats() (Stats, error) {
	var st Stats

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size), 0) FROM dedup
	`).Scan(&st.Records, &st.TotalBytes)
	if err != nil {
		return st, fmt.Errorf("failed to query totals: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM((n - 1) * size), 0)
		FROM (SELECT size, COUNT(*) AS n FROM dedup GROUP BY hash, size HAVING COUNT(*) >= 2)
	`).Scan(&st.DuplicateGroups, &st.ReclaimableBytes)
	if err != nil {
		return st, fmt.Errorf("failed to query duplicate totals: %w", err)
	}

	return st, nil
}

// DuplicateDigests returns every digest shared by two or more records
// inside scope, in order of first insertion
func (s *Store) DuplicateDigests(scope Scope) ([]fingerprint.Digest, error) {
	var (
		rows *sql.Rows
		err  error
	)

	switch {
	case scope.Prefix == "":
		rows, err = s.db.Query(`
			SELECT hash FROM dedup
			GROUP BY hash HAVING COUNT(*) >= 2
			ORDER BY MIN(rowid)
		`)
	case scope.Segmented:
		dir := scope.Prefix
		under := dir
		if !strings.HasSuffix(under, string(os.PathSeparator)) {
			under += string(os.PathSeparator)
		}
		rows, err = s.db.Query(`
			SELECT hash FROM dedup
			WHERE dir = ? OR substr(dir, 1, length(?)) = ?
			GROUP BY hash HAVING COUNT(*) >= 2
			ORDER BY MIN(rowid)
		`, dir, under, under)
	default:
		rows, err = s.db.Query(`
			SELECT hash FROM dedup
			WHERE substr(dir, 1, length(?)) = ?
			GROUP BY hash HAVING COUNT(*) >= 2
			ORDER BY MIN(rowid)
		`, scope.Prefix, scope.Prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate digests: %w", err)
	}
	defer rows.Close()

	var digests []fingerprint.Digest
	for rows.Next() {
		var hash []byte
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan digest: %w", err)
		}
		digests = append(digests, decodeDigest(hash, ""))
	}

	return digests, rows.Err()
}

// Candidates returns the paths whose size repeats at least twice among the
// records carrying digest, searched over the whole catalog.
//
// With exact=false the size set is expanded back to every path of that
// size regardless of digest, as older catalogs did. With exact=true only
// paths that also carry digest are returned.
func (s *Store) Candidates(digest fingerprint.Digest, exact bool) ([]Candidate, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if exact {
		rows, err = s.db.Query(`
			SELECT dir, size FROM dedup
			WHERE hash = ? AND size IN (
				SELECT size FROM dedup WHERE hash = ? GROUP BY size HAVING COUNT(*) >= 2
			)
			ORDER BY rowid
		`, digest.Bytes(), digest.Bytes())
	} else {
		rows, err = s.db.Query(`
			SELECT dir, size FROM dedup
			WHERE size IN (
				SELECT size FROM dedup WHERE hash = ? GROUP BY size HAVING COUNT(*) >= 2
			)
			ORDER BY rowid
		`, digest.Bytes())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates for %s: %w", digest, err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Path, &c.Size); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// decodeDigest converts a stored blob, reporting (not failing on) a size
// mismatch
func decodeDigest(hash []byte, path string) fingerprint.Digest {
	d, err := fingerprint.FromBytes(hash)
	if errors.Is(err, fingerprint.ErrDigestSize) {
		if path != "" {
			util.WarnLog("Stored digest for %s: %v", path, err)
		} else {
			util.WarnLog("Stored digest: %v", err)
		}
	}
	return d
}
